package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	_ "github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend/sqlite"
	"github.com/ekaya-inc/ekaya-logscope/pkg/engine"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

func newAuditConnection(t *testing.T) *engine.Connection {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE app_log (created TEXT, message TEXT);
		INSERT INTO app_log VALUES ('2024-01-02 11:00:00', 'ERR2 <ns:corrId>b</ns:corrId>');
		INSERT INTO app_log VALUES ('2024-01-01 10:00:00', 'ERR1 <ns:corrId>a</ns:corrId>');
		INSERT INTO app_log VALUES ('2024-01-03 09:00:00', 'fine');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	sortPattern, err := models.NewSortPattern(`date:'([^']*)'`, true)
	require.NoError(t, err)
	dateCol, err := models.NewColumnPattern("date", `date:'([^']*)'`, true)
	require.NoError(t, err)

	conn, err := engine.New(&models.Topology{
		Origin: "tools.yaml",
		Groups: []models.GroupConfig{
			{
				Name:    "Application servers",
				Kind:    models.GroupKindFile,
				Sources: []models.Source{{Name: "server", SourceName: "server.log*", Template: "grep -h '{{search_str}}' {{source_name}}"}},
			},
			{
				Name:  "Audit DB",
				Kind:  models.GroupKindDatabase,
				Nodes: []models.NodeConfig{{Name: "audit", Backend: "sqlite", Params: map[string]string{"host": "local", "database": path}}},
				Sources: []models.Source{{
					Name:       "events",
					SourceName: "app_log",
					Template:   "select created, message from {{source_name}} where message like '%{{search_str}}%'",
					Fields:     []models.OutField{{Name: "date"}, {Name: "msg"}},
				}},
				Patterns: models.Patterns{Sort: sortPattern, Columns: []models.ColumnPattern{dateCol}},
			},
		},
	}, engine.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return conn
}

func newLogToolServer(t *testing.T, allowExec bool) *server.MCPServer {
	t.Helper()
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterLogTools(s, &LogToolDeps{
		Conn:      newAuditConnection(t),
		Logger:    zaptest.NewLogger(t),
		AllowExec: allowExec,
	})
	return s
}

type toolResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolResponse {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s.HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	var resp toolResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func (r toolResponse) text(t *testing.T) string {
	t.Helper()
	require.Nil(t, r.Error)
	require.NotEmpty(t, r.Result.Content)
	return r.Result.Content[0].Text
}

func listToolNames(t *testing.T, s *server.MCPServer) []string {
	t.Helper()
	raw, err := json.Marshal(s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)))
	require.NoError(t, err)
	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	names := make([]string, 0, len(resp.Result.Tools))
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestRegisterLogTools_ExecIsOptIn(t *testing.T) {
	names := listToolNames(t, newLogToolServer(t, false))
	assert.ElementsMatch(t, []string{"list_groups", "list_sources", "search_logs", "get_file_part", "search_records"}, names)

	names = listToolNames(t, newLogToolServer(t, true))
	assert.Contains(t, names, "exec_command")
}

func TestListGroupsTool(t *testing.T) {
	s := newLogToolServer(t, false)

	var result listGroupsResult
	require.NoError(t, json.Unmarshal([]byte(callTool(t, s, "list_groups", nil).text(t)), &result))
	require.Len(t, result.Groups, 2)
	assert.Equal(t, "Application servers", result.Groups[0].Name)
	assert.Equal(t, "file", result.Groups[0].Kind)
	assert.Equal(t, 1, result.Groups[1].Index)
	assert.Equal(t, []string{"audit"}, result.Groups[1].Nodes)
}

func TestListSourcesTool(t *testing.T) {
	s := newLogToolServer(t, false)

	var result listSourcesResult
	require.NoError(t, json.Unmarshal([]byte(callTool(t, s, "list_sources", map[string]any{"group": "Audit DB"}).text(t)), &result))
	assert.Equal(t, "Audit DB", result.Group)
	assert.Equal(t, []engine.SourceItem{{Name: "events", SourceName: "app_log"}}, result.Sources)

	resp := callTool(t, s, "list_sources", map[string]any{"group": "Web"})
	assert.True(t, resp.Result.IsError)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &errResp))
	assert.Equal(t, "unknown_group", errResp.Code)
}

func TestSearchLogsTool(t *testing.T) {
	s := newLogToolServer(t, false)

	resp := callTool(t, s, "search_logs", map[string]any{
		"group":  float64(1),
		"source": "events",
		"query":  "ERR",
		"table":  true,
	})
	require.False(t, resp.Result.IsError, resp.text(t))

	var result linesResult
	require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &result))
	assert.Equal(t, 2, result.LineCount)
	assert.False(t, result.Truncated)
	assert.Equal(t, []string{
		"date:'2024-01-01 10:00:00' msg:'ERR1 <ns:corrId>a</ns:corrId>' " + engine.RowSeparator,
		"date:'2024-01-02 11:00:00' msg:'ERR2 <ns:corrId>b</ns:corrId>' " + engine.RowSeparator,
	}, result.Lines)
	require.NotNil(t, result.Table)
	assert.Len(t, result.Table.Rows, 2)
}

func TestSearchLogsTool_TagFilterAndLimit(t *testing.T) {
	s := newLogToolServer(t, false)

	var result linesResult
	resp := callTool(t, s, "search_logs", map[string]any{
		"group": "1", "source": "events", "query": "ERR", "tag": "corrId", "tag_value": "b",
	})
	require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &result))
	require.Len(t, result.Lines, 1)
	assert.Contains(t, result.Lines[0], "ERR2")

	resp = callTool(t, s, "search_logs", map[string]any{
		"group": "Audit DB", "source": "events", "query": "ERR", "limit": float64(1),
	})
	require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &result))
	assert.Len(t, result.Lines, 1)
	assert.Equal(t, 2, result.LineCount)
	assert.True(t, result.Truncated)
}

func TestSearchLogsTool_Errors(t *testing.T) {
	s := newLogToolServer(t, false)

	tests := []struct {
		name     string
		args     map[string]any
		wantCode string
	}{
		{"missing group", map[string]any{"source": "events", "query": "x"}, "invalid_parameters"},
		{"group out of range", map[string]any{"group": float64(5), "source": "events", "query": "x"}, "unknown_group"},
		{"unknown source", map[string]any{"group": "Audit DB", "source": "nope", "query": "x"}, "unknown_source"},
		{"missing query", map[string]any{"group": "Audit DB", "source": "events"}, "invalid_parameters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "search_logs", tt.args)
			assert.True(t, resp.Result.IsError)
			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &errResp))
			assert.Equal(t, tt.wantCode, errResp.Code)
		})
	}
}

func TestExecCommandTool(t *testing.T) {
	s := newLogToolServer(t, true)

	var result linesResult
	resp := callTool(t, s, "exec_command", map[string]any{
		"group": "Audit DB", "source": "events", "command": "select count(*) from app_log",
	})
	require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &result))
	assert.Equal(t, []string{"date:'3' " + engine.RowSeparator}, result.Lines)

	resp = callTool(t, s, "exec_command", map[string]any{"group": "Audit DB", "source": "events", "command": "  "})
	assert.True(t, resp.Result.IsError)
}

func TestFileTools_RejectDatabaseGroups(t *testing.T) {
	s := newLogToolServer(t, false)

	resp := callTool(t, s, "get_file_part", map[string]any{
		"group": "Audit DB", "source": "events", "file": "server.log", "from": float64(1), "to": float64(10),
	})
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &errResp))
	assert.Equal(t, "unsupported_group_kind", errResp.Code)

	resp = callTool(t, s, "search_records", map[string]any{"group": "Audit DB", "source": "events", "query": "x"})
	require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &errResp))
	assert.Equal(t, "unsupported_group_kind", errResp.Code)

	// A file group without nodes answers with no lines.
	var result linesResult
	resp = callTool(t, s, "get_file_part", map[string]any{
		"group": float64(0), "source": "server", "file": "server.log", "from": float64(1), "to": float64(10),
	})
	require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &result))
	assert.Equal(t, []string{}, result.Lines)

	resp = callTool(t, s, "get_file_part", map[string]any{
		"group": float64(0), "source": "server", "file": "server.log", "from": float64(10), "to": float64(1),
	})
	assert.True(t, resp.Result.IsError)
}

func TestHealthTool_WithTopology(t *testing.T) {
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterHealthTool(s, "2.0.0", newAuditConnection(t))

	var h healthResult
	require.NoError(t, json.Unmarshal([]byte(callTool(t, s, "health", nil).text(t)), &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "tools.yaml", h.Topology)
	assert.Equal(t, 2, h.Groups)
}

func TestLogTools_RedactSecrets(t *testing.T) {
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterLogTools(s, &LogToolDeps{
		Conn:      newAuditConnection(t),
		Logger:    zaptest.NewLogger(t),
		AllowExec: true,
		Redactor:  DefaultSensitiveDetector,
	})

	var result linesResult
	resp := callTool(t, s, "exec_command", map[string]any{
		"group": "Audit DB", "source": "events", "command": "select 'login password=hunter2'",
	})
	require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &result))
	assert.Equal(t, []string{"date:'login password=[REDACTED]' " + engine.RowSeparator}, result.Lines)
}
