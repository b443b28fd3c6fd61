package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/audit"
	"github.com/ekaya-inc/ekaya-logscope/pkg/crypto"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

const testTopologyXML = `<?xml version="1.0" encoding="UTF-8"?>
<config>
  <nodegroups>
    <nodegroup name="Application servers">
      <node name="app1" node-name="app1" user="logs" password="pw" remote-dir="/opt/app/log"/>
      <sources>
        <source name="server" source-name="server.log*">grep -h '{{search_str}}' {{source_name}}</source>
      </sources>
      <patterns>
        <sort>(\d{4}-\d{2}-\d{2})</sort>
      </patterns>
    </nodegroup>
    <nodegroup name="Audit DB" type="database">
      <node name="audit" node-name="db1" user="audit" password="pw" sid="ORCL"/>
      <sources>
        <source name="events" source-name="audit.events" fields="date, msg">select created, message from {{source_name}}</source>
      </sources>
      <patterns/>
    </nodegroup>
  </nodegroups>
</config>`

func writeTopology(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.config.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpen(t *testing.T) {
	f := newFakeFactory()
	f.hosts["app1"] = &fakeHost{lines: []string{"2024-02-01 b", "2024-01-01 a"}}
	path := writeTopology(t, testTopologyXML)

	conn, err := Open(path, WithBackendFactory(f), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	assert.Equal(t, path, conn.Origin())
	assert.Equal(t, []string{"Application servers", "Audit DB"}, conn.GroupNames())

	lines, err := conn.Search(context.Background(), 0, "server", "ERROR", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01 a", "2024-02-01 b"}, lines)
	assert.Equal(t, []string{"cd /opt/app/log\ngrep -h 'ERROR' server.log*"}, f.commandsFor("app1"))
}

func TestOpen_ConfigurationError(t *testing.T) {
	rec := &traceRecorder{}
	path := writeTopology(t, `<config><nodegroups><nodegroup name="g"><node name="n" node-name="h" user="u" remote-dir="/"/></nodegroup></nodegroups></config>`)

	_, err := Open(path, WithTracer(rec), WithBackendFactory(newFakeFactory()))
	require.Error(t, err)

	var cfgErr *apperrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, apperrors.MissingElement, cfgErr.Kind)
	assert.Equal(t, "sources", cfgErr.Name)

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsError)
	assert.True(t, strings.HasPrefix(entries[0].Message, "Configuration loading error, file: '"+path+"', "), entries[0].Message)
	assert.Contains(t, entries[0].Message, "tag: 'sources'")
}

func TestOpen_SealedPassword(t *testing.T) {
	sealer, err := crypto.NewSealer("engine-test-key")
	require.NoError(t, err)
	sealed, err := sealer.Seal("s3cret")
	require.NoError(t, err)
	path := writeTopology(t, strings.Replace(testTopologyXML, `user="audit" password="pw"`, `user="audit" password="`+sealed+`"`, 1))

	conn, err := Open(path, WithBackendFactory(newFakeFactory()), WithUnsealer(sealer))
	require.NoError(t, err)
	g, err := conn.Group(1)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", g.Config().Nodes[0].Params[models.ParamPassword])

	rec := &traceRecorder{}
	_, err = Open(path, WithTracer(rec), WithBackendFactory(newFakeFactory()))
	var cfgErr *apperrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, rec.errors(), 1)
}

func TestOpen_MissingFile(t *testing.T) {
	rec := &traceRecorder{}
	_, err := Open(filepath.Join(t.TempDir(), "absent.config.xml"), WithTracer(rec))
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.Len(t, rec.errors(), 1)
}

func TestNew_UnsupportedBackend(t *testing.T) {
	g := fileGroup("apps", "n1")
	g.Nodes[0].Backend = "telnet"

	_, err := New(&models.Topology{Groups: []models.GroupConfig{g}}, WithBackendFactory(newFakeFactory()))
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedBackend)
	assert.Contains(t, err.Error(), "node group apps")
}

func TestConnection_GroupLookup(t *testing.T) {
	f := newFakeFactory()
	conn, _ := newTestConnection(t, f, 1,
		fileGroup("apps", "n1"),
		fileGroup("batch", "n2"),
		fileGroup("apps", "n3"),
	)

	assert.Equal(t, []string{"apps", "batch", "apps"}, conn.GroupNames())

	g := conn.GroupByName("apps")
	require.NotNil(t, g)
	assert.Equal(t, []string{"n3"}, g.NodeNames(), "last group with the name wins")
	assert.Equal(t, 2, conn.GroupIndex("apps"))
	assert.Equal(t, -1, conn.GroupIndex("none"))
	assert.Nil(t, conn.GroupByName("none"))

	_, err := conn.Group(3)
	assert.ErrorIs(t, err, apperrors.ErrGroupIndexOutOfRange)
	_, err = conn.Group(-1)
	assert.ErrorIs(t, err, apperrors.ErrGroupIndexOutOfRange)

	_, err = conn.Search(context.Background(), 7, "app", "x", "")
	assert.ErrorIs(t, err, apperrors.ErrGroupIndexOutOfRange)
	_, err = conn.ExecCmd(context.Background(), 7, "app", "ls")
	assert.ErrorIs(t, err, apperrors.ErrGroupIndexOutOfRange)

	items, err := conn.SourceItems(1)
	require.NoError(t, err)
	assert.Equal(t, []SourceItem{{Name: "app", SourceName: "app"}}, items)
	_, err = conn.SourceItems(9)
	assert.ErrorIs(t, err, apperrors.ErrGroupIndexOutOfRange)
}

func TestConnection_ExecCmdIsAudited(t *testing.T) {
	f := newFakeFactory()
	f.hosts["n1"] = &fakeHost{lines: []string{"out"}}
	core, recorded := observer.New(zapcore.InfoLevel)

	conn, err := New(&models.Topology{Groups: []models.GroupConfig{fileGroup("apps", "n1")}},
		WithBackendFactory(f),
		WithNodeOptions(NodeOptions{Auditor: audit.NewSecurityAuditor(zap.New(core))}),
	)
	require.NoError(t, err)

	lines, err := conn.ExecCmd(context.Background(), 0, "app", "tail -n 5 app.log")
	require.NoError(t, err)
	assert.Equal(t, []string{"out"}, lines)

	entries := recorded.FilterMessage("Raw command executed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "apps", entries[0].ContextMap()["group"])
	assert.Equal(t, "tail -n 5 app.log", entries[0].ContextMap()["command"])
}

func TestConnection_ResolveGroup(t *testing.T) {
	f := newFakeFactory()
	conn, _ := newTestConnection(t, f, 1,
		fileGroup("apps", "n1"),
		fileGroup("batch", "n2"),
		fileGroup("apps", "n3"),
	)

	idx, err := conn.ResolveGroup("1")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = conn.ResolveGroup("apps")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = conn.ResolveGroup("3")
	assert.ErrorIs(t, err, apperrors.ErrGroupIndexOutOfRange)

	_, err = conn.ResolveGroup("web")
	assert.ErrorIs(t, err, apperrors.ErrUnknownGroup)
}

func TestConnection_FilePart(t *testing.T) {
	f := newFakeFactory()
	f.hosts["n1"] = &fakeHost{lines: []string{"./server.log:5:line five"}}
	conn, rec := newTestConnection(t, f, 1, fileGroup("apps", "n1"))

	lines, err := conn.FilePart(context.Background(), 0, "app", "./server.log", -3, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"./server.log:5:line five"}, lines)

	assert.Equal(t, traceEntry{Message: "Get lines from 0 to 5 from file './server.log'"}, rec.all()[0])
	assert.Equal(t, []string{
		"cd /opt/app/log\nawk '(NR >= 0) && (NR <= 5) {print FILENAME \":\" FNR \":\" $0}' './server.log' ",
	}, f.commandsFor("n1"))
}

func TestConnection_SearchExtended(t *testing.T) {
	f := newFakeFactory()
	f.hosts["n1"] = &fakeHost{lines: []string{"2024-01-01 10:00:00,000 ERROR x"}}
	g := fileGroup("apps", "n1")
	g.Sources[0].SourceName = "server.log*"
	conn, rec := newTestConnection(t, f, 1, g)

	lines, err := conn.SearchExtended(context.Background(), 0, "app", "TMO-42", "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	assert.Equal(t, traceEntry{Message: "Extended search for 'TMO-42' in files 'server.log*' with date >= '2024-01-01'"}, rec.all()[0])
	cmds := f.commandsFor("n1")
	require.Len(t, cmds, 1)
	assert.Equal(t, "cd /opt/app/log\n"+SearchExtendedCmd("server.log*", "TMO-42", "2024-01-01"), cmds[0])

	_, err = conn.SearchExtended(context.Background(), 0, "nope", "x", "")
	assert.ErrorIs(t, err, apperrors.ErrUnknownSource)
}

func TestConnection_FileOperationsRejectDatabaseGroups(t *testing.T) {
	f := newFakeFactory()
	db := models.GroupConfig{
		Name:    "Audit DB",
		Kind:    models.GroupKindDatabase,
		Nodes:   []models.NodeConfig{queryNode("db1")},
		Sources: []models.Source{eventsSource},
	}
	conn, _ := newTestConnection(t, f, 1, db)

	_, err := conn.FilePart(context.Background(), 0, "events", "x.log", 1, 2)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedGroupKind)
	_, err = conn.SearchExtended(context.Background(), 0, "events", "x", "")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedGroupKind)
	assert.Empty(t, f.eventsFor("db1"))
}
