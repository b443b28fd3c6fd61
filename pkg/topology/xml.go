package topology

import (
	"encoding/xml"
	"strings"
)

// xmlDocument mirrors the attribute-oriented XML layout:
//
//	<config>
//	  <ssh-keys><key name=".." file-name=".." password=".."/></ssh-keys>
//	  <nodegroups>
//	    <nodegroup name=".." type="file|database">
//	      <node name=".." node-name="host[:port]" user=".." password=".." remote-dir=".." key-name=".."/>
//	      <sources><source name=".." fields="a, b:xml">template</source></sources>
//	      <patterns><sort active="1">expr</sort><msg-column name=".." main="1">expr</msg-column></patterns>
//	    </nodegroup>
//	  </nodegroups>
//	</config>
type xmlDocument struct {
	XMLName xml.Name
	Keys    []xmlKey   `xml:"ssh-keys>key"`
	Groups  []xmlGroup `xml:"nodegroups>nodegroup"`
}

type xmlKey struct {
	Name     string `xml:"name,attr"`
	FileName string `xml:"file-name,attr"`
	Password string `xml:"password,attr"`
}

type xmlGroup struct {
	Name     string       `xml:"name,attr"`
	Type     string       `xml:"type,attr"`
	Nodes    []xmlNode    `xml:"node"`
	Sources  *xmlSources  `xml:"sources"`
	Patterns *xmlPatterns `xml:"patterns"`
}

type xmlNode struct {
	Name        string     `xml:"name,attr"`
	NodeName    string     `xml:"node-name,attr"`
	User        string     `xml:"user,attr"`
	Password    string     `xml:"password,attr"`
	RemoteDir   string     `xml:"remote-dir,attr"`
	KeyName     string     `xml:"key-name,attr"`
	SID         string     `xml:"sid,attr"`
	ServiceName string     `xml:"service-name,attr"`
	Backend     string     `xml:"backend,attr"`
	Extra       []xml.Attr `xml:",any,attr"`
}

type xmlSources struct {
	Items []xmlSource `xml:"source"`
}

type xmlSource struct {
	Name       string `xml:"name,attr"`
	SourceName string `xml:"source-name,attr"`
	Fields     string `xml:"fields,attr"`
	Template   string `xml:",chardata"`
}

type xmlPatterns struct {
	Sort    *xmlSort    `xml:"sort"`
	Columns []xmlColumn `xml:"msg-column"`
}

type xmlSort struct {
	Active *string `xml:"active,attr"`
	Expr   string  `xml:",chardata"`
}

type xmlColumn struct {
	Name string  `xml:"name,attr"`
	Main *string `xml:"main,attr"`
	Expr string  `xml:",chardata"`
}

// toDocument converts the XML layout into the neutral document.
func (x *xmlDocument) toDocument() *document {
	doc := &document{}
	for _, k := range x.Keys {
		doc.Keys = append(doc.Keys, keyDoc(k))
	}
	for _, g := range x.Groups {
		gd := groupDoc{Name: g.Name, Type: g.Type}
		for _, n := range g.Nodes {
			nd := nodeDoc{
				Name:        n.Name,
				NodeName:    n.NodeName,
				User:        n.User,
				Password:    n.Password,
				RemoteDir:   n.RemoteDir,
				KeyName:     n.KeyName,
				SID:         n.SID,
				ServiceName: n.ServiceName,
				Backend:     n.Backend,
			}
			if len(n.Extra) > 0 {
				nd.Params = make(map[string]string, len(n.Extra))
				for _, a := range n.Extra {
					nd.Params[strings.ReplaceAll(a.Name.Local, "-", "_")] = a.Value
				}
			}
			gd.Nodes = append(gd.Nodes, nd)
		}
		if g.Sources != nil {
			sources := make([]sourceDoc, 0, len(g.Sources.Items))
			for _, s := range g.Sources.Items {
				sources = append(sources, sourceDoc(s))
			}
			gd.Sources = &sources
		}
		if g.Patterns != nil {
			pd := &patternsDoc{}
			if g.Patterns.Sort != nil {
				pd.Sort = &sortDoc{Active: attrValue(g.Patterns.Sort.Active), Expr: g.Patterns.Sort.Expr}
			}
			for _, c := range g.Patterns.Columns {
				pd.Columns = append(pd.Columns, columnDoc{Name: c.Name, Main: attrValue(c.Main), Expr: c.Expr})
			}
			gd.Patterns = pd
		}
		doc.Groups = append(doc.Groups, gd)
	}
	return doc
}

// attrValue maps an optional attribute onto the untyped flag representation.
func attrValue(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
