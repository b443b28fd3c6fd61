package topology

// document is the format-neutral shape of a topology file.
// YAML and TOML decode into it directly; XML is converted from xmlDocument.
type document struct {
	Keys   []keyDoc   `yaml:"ssh-keys" toml:"ssh-keys"`
	Groups []groupDoc `yaml:"nodegroups" toml:"nodegroups"`
}

type keyDoc struct {
	Name     string `yaml:"name" toml:"name"`
	FileName string `yaml:"file-name" toml:"file-name"`
	Password string `yaml:"password" toml:"password"`
}

type groupDoc struct {
	Name     string       `yaml:"name" toml:"name"`
	Type     string       `yaml:"type" toml:"type"`
	Nodes    []nodeDoc    `yaml:"nodes" toml:"nodes"`
	Sources  *[]sourceDoc `yaml:"sources" toml:"sources"`
	Patterns *patternsDoc `yaml:"patterns" toml:"patterns"`
}

type nodeDoc struct {
	Name        string            `yaml:"name" toml:"name"`
	NodeName    string            `yaml:"node-name" toml:"node-name"`
	User        string            `yaml:"user" toml:"user"`
	Password    string            `yaml:"password" toml:"password"`
	RemoteDir   string            `yaml:"remote-dir" toml:"remote-dir"`
	KeyName     string            `yaml:"key-name" toml:"key-name"`
	SID         string            `yaml:"sid" toml:"sid"`
	ServiceName string            `yaml:"service-name" toml:"service-name"`
	Backend     string            `yaml:"backend" toml:"backend"`
	Params      map[string]string `yaml:"params" toml:"params"`
}

type sourceDoc struct {
	Name       string `yaml:"name" toml:"name"`
	SourceName string `yaml:"source-name" toml:"source-name"`
	Fields     string `yaml:"fields" toml:"fields"`
	Template   string `yaml:"template" toml:"template"`
}

type patternsDoc struct {
	Sort    *sortDoc    `yaml:"sort" toml:"sort"`
	Columns []columnDoc `yaml:"msg-columns" toml:"msg-columns"`
}

type sortDoc struct {
	Active any    `yaml:"active" toml:"active"` // nil when absent
	Expr   string `yaml:"expr" toml:"expr"`
}

type columnDoc struct {
	Name string `yaml:"name" toml:"name"`
	Main any    `yaml:"main" toml:"main"`
	Expr string `yaml:"expr" toml:"expr"`
}
