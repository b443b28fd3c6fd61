package topology

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/crypto"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// Default backends per group kind.
const (
	DefaultFileBackend     = "ssh"
	DefaultDatabaseBackend = "oracle"
)

// builder turns a decoded document into the validated topology model.
type builder struct {
	origin   string
	paths    paths
	keys     map[string]models.SSHKey
	unsealer Unsealer
}

// secret returns value, decrypted when it is sealed.
func (b *builder) secret(path, name, value string) (string, error) {
	if !crypto.IsSealed(value) {
		return value, nil
	}
	if b.unsealer == nil {
		return "", b.invalid(path, name, fmt.Errorf("value is sealed but no secret key is configured"))
	}
	plain, err := b.unsealer.Unseal(value)
	if err != nil {
		return "", b.invalid(path, name, err)
	}
	return plain, nil
}

func (b *builder) missingAttr(path, name string) error {
	return &apperrors.ConfigError{File: b.origin, Path: path, Kind: apperrors.MissingAttribute, Name: name}
}

func (b *builder) missingTag(path, name string) error {
	return &apperrors.ConfigError{File: b.origin, Path: path, Kind: apperrors.MissingElement, Name: name}
}

func (b *builder) invalid(path, name string, err error) error {
	return &apperrors.ConfigError{File: b.origin, Path: path, Kind: apperrors.InvalidValue, Name: name, Err: err}
}

func (b *builder) build(doc *document) (*models.Topology, error) {
	top := &models.Topology{Origin: b.origin}

	b.keys = make(map[string]models.SSHKey, len(doc.Keys))
	for i, k := range doc.Keys {
		path := b.paths.key(i)
		if k.Name == "" {
			return nil, b.missingAttr(path, "name")
		}
		if k.FileName == "" {
			return nil, b.missingAttr(path, "file-name")
		}
		password, err := b.secret(path, "password", k.Password)
		if err != nil {
			return nil, err
		}
		key := models.SSHKey{Name: k.Name, FileName: k.FileName, Password: password}
		b.keys[k.Name] = key
		top.Keys = append(top.Keys, key)
	}

	for i, g := range doc.Groups {
		group, err := b.group(b.paths.group(i), g)
		if err != nil {
			return nil, err
		}
		top.Groups = append(top.Groups, group)
	}
	return top, nil
}

func (b *builder) group(path string, g groupDoc) (models.GroupConfig, error) {
	if g.Name == "" {
		return models.GroupConfig{}, b.missingAttr(path, "name")
	}
	kind := models.GroupKindFile
	if g.Type != "" {
		kind = models.GroupKind(g.Type)
		if !kind.IsValid() {
			return models.GroupConfig{}, b.invalid(path, "type", fmt.Errorf("unknown node group type %q", g.Type))
		}
	}
	group := models.GroupConfig{Name: g.Name, Kind: kind}

	for i, n := range g.Nodes {
		node, err := b.node(b.paths.node(path, i), kind, n)
		if err != nil {
			return models.GroupConfig{}, err
		}
		group.Nodes = append(group.Nodes, node)
	}

	if g.Sources == nil {
		return models.GroupConfig{}, b.missingTag(path, "sources")
	}
	for i, s := range *g.Sources {
		spath := b.paths.source(path, i)
		if s.Name == "" {
			return models.GroupConfig{}, b.missingAttr(spath, "name")
		}
		src := models.Source{Name: s.Name, SourceName: s.SourceName, Template: s.Template, Fields: parseFields(s.Fields)}
		if src.SourceName == "" {
			src.SourceName = s.Name
		}
		group.Sources = append(group.Sources, src)
	}

	if g.Patterns == nil {
		return models.GroupConfig{}, b.missingTag(path, "patterns")
	}
	patterns, err := b.patterns(path, g.Patterns)
	if err != nil {
		return models.GroupConfig{}, err
	}
	group.Patterns = patterns
	return group, nil
}

func (b *builder) node(path string, kind models.GroupKind, n nodeDoc) (models.NodeConfig, error) {
	for _, req := range []struct{ name, value string }{
		{"name", n.Name},
		{"node-name", n.NodeName},
		{"user", n.User},
	} {
		if req.value == "" {
			return models.NodeConfig{}, b.missingAttr(path, req.name)
		}
	}

	params := make(map[string]string, len(n.Params)+8)
	for k, v := range n.Params {
		plain, err := b.secret(path, k, v)
		if err != nil {
			return models.NodeConfig{}, err
		}
		params[k] = plain
	}
	password, err := b.secret(path, "password", n.Password)
	if err != nil {
		return models.NodeConfig{}, err
	}
	set := func(key, value string) {
		if value != "" {
			params[key] = value
		}
	}
	set(models.ParamHost, n.NodeName)
	set(models.ParamUser, n.User)
	set(models.ParamPassword, password)

	backend := n.Backend
	switch kind {
	case models.GroupKindFile:
		if n.RemoteDir == "" {
			return models.NodeConfig{}, b.missingAttr(path, "remote-dir")
		}
		set(models.ParamRemoteDir, n.RemoteDir)
		if n.KeyName != "" {
			key, ok := b.keys[n.KeyName]
			if !ok {
				return models.NodeConfig{}, b.invalid(path, "key-name", fmt.Errorf("unknown ssh key %q", n.KeyName))
			}
			set(models.ParamKeyFile, key.FileName)
			set(models.ParamKeyPassword, key.Password)
		}
		if backend == "" {
			backend = DefaultFileBackend
		}
	case models.GroupKindDatabase:
		set(models.ParamSID, n.SID)
		set(models.ParamServiceName, n.ServiceName)
		if backend == "" {
			backend = DefaultDatabaseBackend
		}
	}

	return models.NodeConfig{Name: n.Name, Backend: backend, Params: params}, nil
}

func (b *builder) patterns(groupPath string, p *patternsDoc) (models.Patterns, error) {
	var out models.Patterns

	// No sort element means no sorting.
	if p.Sort != nil {
		spath := b.paths.sort(groupPath)
		active, err := b.flagValue(spath, "active", p.Sort.Active, true)
		if err != nil {
			return out, err
		}
		sp, err := models.NewSortPattern(p.Sort.Expr, active)
		if err != nil {
			return out, b.invalid(spath, "sort", err)
		}
		out.Sort = sp
	}

	primaries := 0
	for i, c := range p.Columns {
		cpath := b.paths.column(groupPath, i)
		if c.Name == "" {
			return out, b.missingAttr(cpath, "name")
		}
		primary, err := b.flagValue(cpath, "main", c.Main, false)
		if err != nil {
			return out, err
		}
		if primary {
			primaries++
			if primaries > 1 {
				return out, b.invalid(cpath, "main", fmt.Errorf("more than one primary column"))
			}
		}
		col, err := models.NewColumnPattern(c.Name, c.Expr, primary)
		if err != nil {
			return out, b.invalid(cpath, c.Name, err)
		}
		out.Columns = append(out.Columns, col)
	}
	if primaries == 0 && len(out.Columns) > 0 {
		out.Columns[0].Primary = true
	}
	return out, nil
}

// flagValue interprets an optional boolean attribute. XML carries "0"/"1",
// YAML and TOML may carry native booleans or integers.
func (b *builder) flagValue(path, name string, raw any, def bool) (bool, error) {
	switch v := raw.(type) {
	case nil:
		return def, nil
	case bool:
		return v, nil
	}
	text := strings.TrimSpace(fmt.Sprint(raw))
	v, err := strconv.ParseBool(text)
	if err != nil {
		return false, b.invalid(path, name, fmt.Errorf("not a boolean: %q", text))
	}
	return v, nil
}

// parseFields parses a field list such as "date, msg, payload:xml".
func parseFields(list string) []models.OutField {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var fields []models.OutField
	for _, f := range strings.Split(list, ",") {
		name, kind, _ := strings.Cut(strings.TrimSpace(f), ":")
		fields = append(fields, models.OutField{Name: name, IsMarkup: kind == "xml"})
	}
	return fields
}
