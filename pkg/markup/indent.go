// Package markup formats and inspects XML payloads found in log records.
package markup

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const indentUnit = "  "

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;")
)

type nodeKind int

const (
	elementNode nodeKind = iota
	textNode
	commentNode
	procInstNode
	directiveNode
)

type node struct {
	kind     nodeKind
	name     string // qualified element name, or the target of a processing instruction
	attrs    []xml.Attr
	text     string
	children []*node
}

// Indent pretty-prints an XML fragment with two-space indentation.
// Elements holding only text stay on one line. Text around the markup,
// such as a log line prefix, is kept as its own line. Namespace prefixes
// are preserved as written.
//
// An error is returned when the input is not well-formed; callers that
// display arbitrary values fall back to the raw text.
func Indent(s string) (string, error) {
	roots, err := parse(s)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, n := range roots {
		if i > 0 {
			b.WriteByte('\n')
		}
		render(&b, n, 0)
	}
	return b.String(), nil
}

// IndentOrRaw returns the indented form of s, or s unchanged when it is not XML.
func IndentOrRaw(s string) string {
	out, err := Indent(s)
	if err != nil || out == "" {
		return s
	}
	return out
}

func parse(s string) ([]*node, error) {
	dec := xml.NewDecoder(strings.NewReader(s))

	var roots []*node
	var stack []*node
	hasElement := false

	appendNode := func(n *node) {
		if len(stack) == 0 {
			roots = append(roots, n)
			return
		}
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, n)
	}

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{kind: elementNode, name: qualified(t.Name), attrs: append([]xml.Attr(nil), t.Attr...)}
			appendNode(n)
			stack = append(stack, n)
			hasElement = true
		case xml.EndElement:
			name := qualified(t.Name)
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end element </%s>", name)
			}
			open := stack[len(stack)-1]
			if open.name != name {
				return nil, fmt.Errorf("element <%s> closed by </%s>", open.name, name)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text != "" {
				appendNode(&node{kind: textNode, text: text})
			}
		case xml.Comment:
			appendNode(&node{kind: commentNode, text: string(t)})
		case xml.ProcInst:
			appendNode(&node{kind: procInstNode, name: t.Target, text: string(t.Inst)})
		case xml.Directive:
			appendNode(&node{kind: directiveNode, text: string(t)})
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("element <%s> is not closed", stack[len(stack)-1].name)
	}
	if !hasElement {
		return nil, errors.New("no XML element found")
	}
	return roots, nil
}

func render(b *strings.Builder, n *node, depth int) {
	pad := strings.Repeat(indentUnit, depth)
	b.WriteString(pad)

	switch n.kind {
	case textNode:
		b.WriteString(textEscaper.Replace(n.text))
		return
	case commentNode:
		b.WriteString("<!--" + n.text + "-->")
		return
	case procInstNode:
		b.WriteString("<?" + n.name)
		if n.text != "" {
			b.WriteString(" " + n.text)
		}
		b.WriteString("?>")
		return
	case directiveNode:
		b.WriteString("<!" + n.text + ">")
		return
	}

	b.WriteString("<" + n.name)
	for _, a := range n.attrs {
		fmt.Fprintf(b, ` %s="%s"`, qualified(a.Name), attrEscaper.Replace(a.Value))
	}
	b.WriteByte('>')

	if textOnly(n) {
		for _, c := range n.children {
			b.WriteString(textEscaper.Replace(c.text))
		}
		b.WriteString("</" + n.name + ">")
		return
	}

	for _, c := range n.children {
		b.WriteByte('\n')
		render(b, c, depth+1)
	}
	b.WriteString("\n" + pad + "</" + n.name + ">")
}

func textOnly(n *node) bool {
	for _, c := range n.children {
		if c.kind != textNode {
			return false
		}
	}
	return true
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}
