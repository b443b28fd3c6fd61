package topology

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/crypto"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<config>
  <ssh-keys>
    <key name="ops" file-name="/home/ops/.ssh/id_rsa" password="secret"/>
  </ssh-keys>
  <nodegroups>
    <nodegroup name="Application servers">
      <node name="app1" node-name="10.0.0.1" user="logs" password="pw" remote-dir="/opt/app/log"/>
      <node name="app2" node-name="10.0.0.2:2222" user="logs" remote-dir="/opt/app/log" key-name="ops" timeout-seconds="5"/>
      <sources>
        <source name="server.log*">grep -h '{{search_str}}' {{source_name}}</source>
      </sources>
      <patterns>
        <sort active="1">[^:]*:\d+:(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3})</sort>
        <msg-column name="File">([^:]*):</msg-column>
        <msg-column name="Date" main="1">[^:]*:\d+:(\d{4}-\d{2}-\d{2} \S+)</msg-column>
      </patterns>
    </nodegroup>
    <nodegroup name="Audit DB" type="database">
      <node name="audit" node-name="db.local:1521" user="audit" password="pw" sid="ORCL"/>
      <sources>
        <source name="events" source-name="audit.events" fields="created, message, payload:xml">select created, message, payload from {{source_name}} where message like '%{{search_str}}%'</source>
      </sources>
      <patterns/>
    </nodegroup>
  </nodegroups>
</config>`

func TestParse_XML(t *testing.T) {
	top, err := Parse([]byte(sampleXML), FormatXML, "prod.config.xml")
	require.NoError(t, err)

	assert.Equal(t, "prod.config.xml", top.Origin)
	require.Len(t, top.Keys, 1)
	require.Len(t, top.Groups, 2)

	files := top.Groups[0]
	assert.Equal(t, "Application servers", files.Name)
	assert.Equal(t, models.GroupKindFile, files.Kind)
	require.Len(t, files.Nodes, 2)

	app1 := files.Nodes[0]
	assert.Equal(t, "ssh", app1.Backend)
	assert.Equal(t, "10.0.0.1", app1.Address())
	assert.Equal(t, "/opt/app/log", app1.Params[models.ParamRemoteDir])
	assert.Equal(t, "pw", app1.Params[models.ParamPassword])
	assert.NotContains(t, app1.Params, models.ParamKeyFile)

	app2 := files.Nodes[1]
	assert.Equal(t, "/home/ops/.ssh/id_rsa", app2.Params[models.ParamKeyFile])
	assert.Equal(t, "secret", app2.Params[models.ParamKeyPassword])
	assert.Equal(t, "5", app2.Params["timeout_seconds"])

	require.Len(t, files.Sources, 1)
	assert.Equal(t, "server.log*", files.Sources[0].SourceName)
	assert.Equal(t, "grep -h '{{search_str}}' {{source_name}}", files.Sources[0].Template)

	assert.True(t, files.Patterns.Sort.IsActive())
	require.Len(t, files.Patterns.Columns, 2)
	assert.False(t, files.Patterns.Columns[0].Primary)
	assert.True(t, files.Patterns.Columns[1].Primary)

	db := top.Groups[1]
	assert.Equal(t, models.GroupKindDatabase, db.Kind)
	assert.Equal(t, "oracle", db.Nodes[0].Backend)
	assert.Equal(t, "ORCL", db.Nodes[0].Params[models.ParamSID])
	assert.Equal(t, "audit.events", db.Sources[0].SourceName)
	assert.Equal(t, []models.OutField{
		{Name: "created"},
		{Name: "message"},
		{Name: "payload", IsMarkup: true},
	}, db.Sources[0].Fields)
	assert.False(t, db.Patterns.Sort.IsActive(), "absent sort element means no sorting")
	assert.Empty(t, db.Patterns.Columns)
}

func TestParse_YAML(t *testing.T) {
	doc := `
nodegroups:
  - name: Local
    type: database
    nodes:
      - name: local
        node-name: localhost
        user: reader
        backend: sqlite
        params:
          database: /tmp/logs.db
    sources:
      - name: errors
        fields: ts, msg
        template: "select ts, msg from log where msg like '%{{search_str}}%'"
    patterns:
      sort:
        active: false
        expr: "ts:'([^']*)'"
      msg-columns:
        - name: Time
          expr: "ts:'([^']*)'"
`
	top, err := Parse([]byte(doc), FormatYAML, "local.yaml")
	require.NoError(t, err)
	require.Len(t, top.Groups, 1)

	g := top.Groups[0]
	assert.Equal(t, "sqlite", g.Nodes[0].Backend)
	assert.Equal(t, "/tmp/logs.db", g.Nodes[0].Params[models.ParamDatabase])
	assert.Equal(t, "errors", g.Sources[0].SourceName)
	assert.False(t, g.Patterns.Sort.IsActive())
	assert.NotNil(t, g.Patterns.Sort.Regexp)
	require.Len(t, g.Patterns.Columns, 1)
	assert.True(t, g.Patterns.Columns[0].Primary, "first column becomes primary by default")
}

func TestParse_TOML(t *testing.T) {
	doc := `
[[nodegroups]]
name = "Web"

  [[nodegroups.nodes]]
  name = "web1"
  node-name = "web1.local"
  user = "www"
  remote-dir = "/var/log/nginx"

  [[nodegroups.sources]]
  name = "access.log"
  template = "grep '{{search_str}}' {{source_name}}"

  [nodegroups.patterns.sort]
  active = 1
  expr = '\S+ - - \[([^\]]+)\]'
`
	top, err := Parse([]byte(doc), FormatTOML, "web.toml")
	require.NoError(t, err)
	require.Len(t, top.Groups, 1)
	g := top.Groups[0]
	assert.Equal(t, models.GroupKindFile, g.Kind)
	assert.Equal(t, "ssh", g.Nodes[0].Backend)
	assert.True(t, g.Patterns.Sort.IsActive())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind apperrors.ConfigErrorKind
		path string
		attr string
	}{
		{
			name: "missing node user",
			doc: `<config><nodegroups><nodegroup name="g">
				<node name="n" node-name="h" remote-dir="/"/><sources/><patterns/>
				</nodegroup></nodegroups></config>`,
			kind: apperrors.MissingAttribute,
			path: "/config/nodegroups/nodegroup[1]/node[1]",
			attr: "user",
		},
		{
			name: "missing remote dir on file node",
			doc: `<config><nodegroups><nodegroup name="g">
				<node name="n" node-name="h" user="u"/><sources/><patterns/>
				</nodegroup></nodegroups></config>`,
			kind: apperrors.MissingAttribute,
			path: "/config/nodegroups/nodegroup[1]/node[1]",
			attr: "remote-dir",
		},
		{
			name: "missing sources",
			doc:  `<config><nodegroups><nodegroup name="g"><patterns/></nodegroup></nodegroups></config>`,
			kind: apperrors.MissingElement,
			path: "/config/nodegroups/nodegroup[1]",
			attr: "sources",
		},
		{
			name: "missing patterns",
			doc:  `<config><nodegroups><nodegroup name="g"><sources/></nodegroup></nodegroups></config>`,
			kind: apperrors.MissingElement,
			path: "/config/nodegroups/nodegroup[1]",
			attr: "patterns",
		},
		{
			name: "missing key file name",
			doc:  `<config><ssh-keys><key name="k"/></ssh-keys></config>`,
			kind: apperrors.MissingAttribute,
			path: "/config/ssh-keys/key[1]",
			attr: "file-name",
		},
		{
			name: "unknown group type",
			doc:  `<config><nodegroups><nodegroup name="g" type="queue"><sources/><patterns/></nodegroup></nodegroups></config>`,
			kind: apperrors.InvalidValue,
			path: "/config/nodegroups/nodegroup[1]",
			attr: "type",
		},
		{
			name: "unknown key reference",
			doc: `<config><nodegroups><nodegroup name="g">
				<node name="n" node-name="h" user="u" remote-dir="/" key-name="nope"/><sources/><patterns/>
				</nodegroup></nodegroups></config>`,
			kind: apperrors.InvalidValue,
			path: "/config/nodegroups/nodegroup[1]/node[1]",
			attr: "key-name",
		},
		{
			name: "two primary columns",
			doc: `<config><nodegroups><nodegroup name="g"><sources/><patterns>
				<msg-column name="a" main="1">(a)</msg-column><msg-column name="b" main="1">(b)</msg-column>
				</patterns></nodegroup></nodegroups></config>`,
			kind: apperrors.InvalidValue,
			path: "/config/nodegroups/nodegroup[1]/patterns/msg-column[2]",
			attr: "main",
		},
		{
			name: "bad sort expression",
			doc:  `<config><nodegroups><nodegroup name="g"><sources/><patterns><sort>(unclosed</sort></patterns></nodegroup></nodegroups></config>`,
			kind: apperrors.InvalidValue,
			path: "/config/nodegroups/nodegroup[1]/patterns/sort",
			attr: "sort",
		},
		{
			name: "non boolean active flag",
			doc:  `<config><nodegroups><nodegroup name="g"><sources/><patterns><sort active="maybe">(x)</sort></patterns></nodegroup></nodegroups></config>`,
			kind: apperrors.InvalidValue,
			path: "/config/nodegroups/nodegroup[1]/patterns/sort",
			attr: "active",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatXML, "bad.xml")
			require.Error(t, err)

			var cfgErr *apperrors.ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %T", err)
			assert.Equal(t, "bad.xml", cfgErr.File)
			assert.Equal(t, tt.kind, cfgErr.Kind)
			assert.Equal(t, tt.path, cfgErr.Path)
			assert.Equal(t, tt.attr, cfgErr.Name)
		})
	}
}

func TestParse_YAMLErrorPaths(t *testing.T) {
	doc := `
nodegroups:
  - name: g
    sources: []
    patterns:
      msg-columns:
        - expr: "(x)"
`
	_, err := Parse([]byte(doc), FormatYAML, "g.yaml")
	var cfgErr *apperrors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, apperrors.MissingAttribute, cfgErr.Kind)
	assert.Equal(t, "nodegroups[0].patterns.msg-columns[0]", cfgErr.Path)
	assert.Equal(t, "name", cfgErr.Name)
}

func TestParse_MalformedDocument(t *testing.T) {
	_, err := Parse([]byte("<config><nodegroups>"), FormatXML, "broken.xml")
	var cfgErr *apperrors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, apperrors.InvalidValue, cfgErr.Kind)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.config.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleXML), 0o600))

	top, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, top.Origin)
	assert.Len(t, top.Groups, 2)

	_, err = Load(filepath.Join(dir, "missing.xml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatXML, FormatFromPath("prod.config.xml"))
	assert.Equal(t, FormatYAML, FormatFromPath("prod.YML"))
	assert.Equal(t, FormatYAML, FormatFromPath("prod.yaml"))
	assert.Equal(t, FormatTOML, FormatFromPath("prod.toml"))
	assert.Equal(t, FormatXML, FormatFromPath("prod"))
}

func TestParse_SealedSecrets(t *testing.T) {
	sealer, err := crypto.NewSealer("topology-test-key")
	require.NoError(t, err)
	nodePassword, err := sealer.Seal("node-pw")
	require.NoError(t, err)
	keyPassword, err := sealer.Seal("key-pw")
	require.NoError(t, err)
	dsn, err := sealer.Seal("/var/lib/audit.db")
	require.NoError(t, err)

	doc := `
ssh-keys:
  - name: ops
    file-name: /home/ops/.ssh/id_rsa
    password: "` + keyPassword + `"
nodegroups:
  - name: Audit DB
    type: database
    nodes:
      - name: audit
        node-name: localhost
        user: reader
        password: "` + nodePassword + `"
        backend: sqlite
        params:
          database: "` + dsn + `"
    sources:
      - name: events
    patterns: {}
`
	top, err := Parse([]byte(doc), FormatYAML, "sealed.yaml", WithUnsealer(sealer))
	require.NoError(t, err)
	assert.Equal(t, "key-pw", top.Keys[0].Password)
	params := top.Groups[0].Nodes[0].Params
	assert.Equal(t, "node-pw", params[models.ParamPassword])
	assert.Equal(t, "/var/lib/audit.db", params[models.ParamDatabase])

	_, err = Parse([]byte(doc), FormatYAML, "sealed.yaml")
	var cfgErr *apperrors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, apperrors.InvalidValue, cfgErr.Kind)
	assert.Equal(t, "password", cfgErr.Name)

	other, err := crypto.NewSealer("a different key")
	require.NoError(t, err)
	_, err = Parse([]byte(doc), FormatYAML, "sealed.yaml", WithUnsealer(other))
	assert.ErrorIs(t, err, crypto.ErrUnsealFailed)
}
