package models

import (
	"fmt"
	"regexp"
)

// GroupKind tags a node group with the backend family its nodes use.
type GroupKind string

const (
	GroupKindFile     GroupKind = "file"
	GroupKindDatabase GroupKind = "database"
)

// IsValid reports whether the kind is one of the known group kinds.
func (k GroupKind) IsValid() bool {
	return k == GroupKindFile || k == GroupKindDatabase
}

// SortPattern describes how a sort key is extracted from a result line.
// Sorting is inactive whenever Expr is empty, regardless of Active.
type SortPattern struct {
	Expr   string         `json:"expr,omitempty"`
	Active bool           `json:"active"`
	Regexp *regexp.Regexp `json:"-"` // compiled once at load, anchored at line start
}

// NewSortPattern compiles expr. An empty expr yields an inactive pattern.
func NewSortPattern(expr string, active bool) (SortPattern, error) {
	p := SortPattern{Expr: expr, Active: active}
	if expr == "" {
		return p, nil
	}
	re, err := compileAnchored(expr)
	if err != nil {
		return SortPattern{}, err
	}
	p.Regexp = re
	return p, nil
}

// IsActive returns true if sorting should be applied.
func (p SortPattern) IsActive() bool {
	return p.Active && p.Regexp != nil
}

// ColumnPattern derives one display column from a result line.
type ColumnPattern struct {
	Name    string         `json:"name"`
	Expr    string         `json:"expr"`
	Primary bool           `json:"primary"`
	Regexp  *regexp.Regexp `json:"-"`
}

// NewColumnPattern compiles expr for the named column.
func NewColumnPattern(name, expr string, primary bool) (ColumnPattern, error) {
	re, err := compileAnchored(expr)
	if err != nil {
		return ColumnPattern{}, err
	}
	return ColumnPattern{Name: name, Expr: expr, Primary: primary, Regexp: re}, nil
}

// Patterns groups the sort rule and display columns of a node group.
type Patterns struct {
	Sort    SortPattern     `json:"sort"`
	Columns []ColumnPattern `json:"columns"`
}

// OutField is one field of a structured (row) result.
// Markup fields hold XML that is pretty-printed on output.
type OutField struct {
	Name     string `json:"name"`
	IsMarkup bool   `json:"is_markup"`
}

// Source is a named command/query template executed against a node.
// Template placeholders: {{source_name}}, {{search_str}}, {{search_date}}.
type Source struct {
	Name       string     `json:"name"`
	SourceName string     `json:"source_name"` // file mask, table reference, etc.
	Template   string     `json:"template"`
	Fields     []OutField `json:"fields,omitempty"`
}

// NodeConfig describes one remote endpoint.
// Params is opaque to the engine and interpreted by the backend.
type NodeConfig struct {
	Name    string            `json:"name"`
	Backend string            `json:"backend"` // "ssh", "postgres", "sqlserver", "oracle", "sqlite"
	Params  map[string]string `json:"-"`       // may carry secrets
}

// Address returns the endpoint address used in trace messages.
func (n NodeConfig) Address() string {
	return n.Params[ParamHost]
}

// Well-known node parameter keys.
const (
	ParamHost        = "host"
	ParamUser        = "user"
	ParamPassword    = "password"
	ParamRemoteDir   = "remote_dir"
	ParamKeyFile     = "key_file"
	ParamKeyPassword = "key_password"
	ParamSID         = "sid"
	ParamServiceName = "service_name"
	ParamDatabase    = "database"
	ParamKnownHosts  = "known_hosts_path"
	ParamTimeout     = "timeout_seconds"
)

// GroupConfig is the unit of fan-out: nodes sharing sources and patterns.
type GroupConfig struct {
	Name     string       `json:"name"`
	Kind     GroupKind    `json:"kind"`
	Nodes    []NodeConfig `json:"nodes"`
	Sources  []Source     `json:"sources"`
	Patterns Patterns     `json:"patterns"`
}

// SSHKey is a named private key referenced by file nodes.
type SSHKey struct {
	Name     string `json:"name"`
	FileName string `json:"file_name"`
	Password string `json:"-"`
}

// Topology is the whole configured environment.
type Topology struct {
	Origin string        `json:"origin"` // file the topology was loaded from
	Keys   []SSHKey      `json:"-"`
	Groups []GroupConfig `json:"groups"`
}

// compileAnchored compiles expr so that it only matches at the start of a line.
func compileAnchored(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + expr + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return re, nil
}
