package topology

import "fmt"

// paths renders element paths for error messages in the notation of the
// source format.
type paths interface {
	root() string
	key(i int) string
	group(i int) string
	node(group string, i int) string
	sources(group string) string
	source(group string, i int) string
	patterns(group string) string
	sort(group string) string
	column(group string, i int) string
}

// xmlPaths produces XPath-like paths, 1-based.
type xmlPaths struct{ rootName string }

func (p xmlPaths) root() string       { return "/" + p.rootName }
func (p xmlPaths) key(i int) string   { return fmt.Sprintf("%s/ssh-keys/key[%d]", p.root(), i+1) }
func (p xmlPaths) group(i int) string { return fmt.Sprintf("%s/nodegroups/nodegroup[%d]", p.root(), i+1) }
func (p xmlPaths) node(g string, i int) string {
	return fmt.Sprintf("%s/node[%d]", g, i+1)
}
func (p xmlPaths) sources(g string) string { return g + "/sources" }
func (p xmlPaths) source(g string, i int) string {
	return fmt.Sprintf("%s/sources/source[%d]", g, i+1)
}
func (p xmlPaths) patterns(g string) string { return g + "/patterns" }
func (p xmlPaths) sort(g string) string     { return g + "/patterns/sort" }
func (p xmlPaths) column(g string, i int) string {
	return fmt.Sprintf("%s/patterns/msg-column[%d]", g, i+1)
}

// keyPaths produces dotted key paths for YAML and TOML, 0-based.
type keyPaths struct{}

func (keyPaths) root() string       { return "." }
func (keyPaths) key(i int) string   { return fmt.Sprintf("ssh-keys[%d]", i) }
func (keyPaths) group(i int) string { return fmt.Sprintf("nodegroups[%d]", i) }
func (keyPaths) node(g string, i int) string {
	return fmt.Sprintf("%s.nodes[%d]", g, i)
}
func (keyPaths) sources(g string) string { return g + ".sources" }
func (keyPaths) source(g string, i int) string {
	return fmt.Sprintf("%s.sources[%d]", g, i)
}
func (keyPaths) patterns(g string) string { return g + ".patterns" }
func (keyPaths) sort(g string) string     { return g + ".patterns.sort" }
func (keyPaths) column(g string, i int) string {
	return fmt.Sprintf("%s.patterns.msg-columns[%d]", g, i)
}
