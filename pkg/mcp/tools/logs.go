// Package tools provides MCP tool implementations for ekaya-logscope.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/engine"
	"github.com/ekaya-inc/ekaya-logscope/pkg/markup"
)

const (
	defaultLineLimit = 500
	maxLineLimit     = 5000
)

// LogToolDeps contains dependencies for log retrieval tools.
type LogToolDeps struct {
	Conn   *engine.Connection
	Logger *zap.Logger
	// AllowExec registers exec_command, which runs arbitrary commands on nodes.
	AllowExec bool
	// Redactor masks secrets in returned lines. Nil returns lines as found.
	Redactor *SensitiveDetector
}

// RegisterLogTools registers the node group tools.
func RegisterLogTools(s *server.MCPServer, deps *LogToolDeps) {
	registerListGroupsTool(s, deps)
	registerListSourcesTool(s, deps)
	registerSearchLogsTool(s, deps)
	registerFilePartTool(s, deps)
	registerSearchRecordsTool(s, deps)
	if deps.AllowExec {
		registerExecCommandTool(s, deps)
	}
}

type groupInfo struct {
	Index   int                 `json:"index"`
	Name    string              `json:"name"`
	Kind    string              `json:"kind"`
	Nodes   []string            `json:"nodes"`
	Sources []engine.SourceItem `json:"sources"`
}

type listGroupsResult struct {
	Groups []groupInfo `json:"groups"`
}

type listSourcesResult struct {
	Group   string              `json:"group"`
	Sources []engine.SourceItem `json:"sources"`
}

type linesResult struct {
	Group     string        `json:"group"`
	Source    string        `json:"source"`
	Lines     []string      `json:"lines"`
	LineCount int           `json:"line_count"`
	Truncated bool          `json:"truncated,omitempty"`
	Table     *engine.Table `json:"table,omitempty"`
}

func registerListGroupsTool(s *server.MCPServer, deps *LogToolDeps) {
	tool := mcp.NewTool(
		"list_groups",
		mcp.WithDescription(
			"Lists the configured node groups with their index, kind (file or database), "+
				"node names and sources. Use the index or name as the 'group' argument of other tools.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groups := deps.Conn.Groups()
		result := listGroupsResult{Groups: make([]groupInfo, len(groups))}
		for i, g := range groups {
			result.Groups[i] = groupInfo{
				Index:   i,
				Name:    g.Name(),
				Kind:    string(g.Kind()),
				Nodes:   g.NodeNames(),
				Sources: g.SourceItems(),
			}
		}
		return jsonResult(result)
	})
}

func registerListSourcesTool(s *server.MCPServer, deps *LogToolDeps) {
	tool := mcp.NewTool(
		"list_sources",
		mcp.WithDescription("Lists the sources (log files or tables) of a node group."),
		mcp.WithString(
			"group",
			mcp.Required(),
			mcp.Description("Node group index or name"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g, _, errResult := resolveGroup(deps, req)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(listSourcesResult{Group: g.Name(), Sources: g.SourceItems()})
	})
}

func registerSearchLogsTool(s *server.MCPServer, deps *LogToolDeps) {
	tool := mcp.NewTool(
		"search_logs",
		mcp.WithDescription(
			"Searches a source on every node of a group and returns the merged lines, "+
				"sorted by timestamp when the group defines a sort pattern. "+
				"Example: search_logs(group='Application servers', source='server', query='OutOfMemory', date='2024-01-31').",
		),
		mcp.WithString(
			"group",
			mcp.Required(),
			mcp.Description("Node group index or name"),
		),
		mcp.WithString(
			"source",
			mcp.Required(),
			mcp.Description("Source name as listed by list_sources"),
		),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Text to search for"),
		),
		mcp.WithString(
			"date",
			mcp.Description("Only records on or after this date, in the format the source expects"),
		),
		mcp.WithBoolean(
			"table",
			mcp.Description("Also return the column view defined by the group's column patterns"),
		),
		mcp.WithString(
			"tag",
			mcp.Description("XML tag used together with tag_value to keep correlated lines only"),
		),
		mcp.WithString(
			"tag_value",
			mcp.Description("Value the tag must carry"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description(fmt.Sprintf("Maximum number of lines to return (default %d, max %d)", defaultLineLimit, maxLineLimit)),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g, idx, errResult := resolveGroup(deps, req)
		if errResult != nil {
			return errResult, nil
		}
		source, err := req.RequireString("source")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		query, err := req.RequireString("query")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		lines, err := deps.Conn.Search(ctx, idx, source, query, getOptionalString(req, "date"))
		if err != nil {
			return toolError(err)
		}
		if tag := trimString(getOptionalString(req, "tag")); tag != "" {
			lines = markup.FilterByTag(lines, tag, getOptionalString(req, "tag_value"))
		}

		result := deps.newLinesResult(g.Name(), source, lines, lineLimit(req))
		if table, ok := getOptionalBool(req, "table"); ok && table {
			t := g.Columns(result.Lines)
			result.Table = &t
		}
		return jsonResult(result)
	})
}

func registerExecCommandTool(s *server.MCPServer, deps *LogToolDeps) {
	tool := mcp.NewTool(
		"exec_command",
		mcp.WithDescription(
			"Runs a raw command (shell command or SQL statement) on every node of a group "+
				"and returns the merged output in node order.",
		),
		mcp.WithString(
			"group",
			mcp.Required(),
			mcp.Description("Node group index or name"),
		),
		mcp.WithString(
			"source",
			mcp.Required(),
			mcp.Description("Source whose field names format query results"),
		),
		mcp.WithString(
			"command",
			mcp.Required(),
			mcp.Description("Command or statement to run"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description(fmt.Sprintf("Maximum number of lines to return (default %d, max %d)", defaultLineLimit, maxLineLimit)),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g, idx, errResult := resolveGroup(deps, req)
		if errResult != nil {
			return errResult, nil
		}
		source, err := req.RequireString("source")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		command, err := req.RequireString("command")
		if err != nil || trimString(command) == "" {
			return NewErrorResult("invalid_parameters", "command parameter cannot be empty"), nil
		}

		deps.Logger.Info("Executing command from MCP client",
			zap.String("group", g.Name()),
			zap.String("source", source))

		lines, err := deps.Conn.ExecCmd(ctx, idx, source, command)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(deps.newLinesResult(g.Name(), source, lines, lineLimit(req)))
	})
}

func registerFilePartTool(s *server.MCPServer, deps *LogToolDeps) {
	tool := mcp.NewTool(
		"get_file_part",
		mcp.WithDescription(
			"Returns a line range of a log file from every node of a file group. "+
				"Lines are prefixed with file name and line number.",
		),
		mcp.WithString(
			"group",
			mcp.Required(),
			mcp.Description("File node group index or name"),
		),
		mcp.WithString(
			"source",
			mcp.Required(),
			mcp.Description("Source name as listed by list_sources"),
		),
		mcp.WithString(
			"file",
			mcp.Required(),
			mcp.Description("File name relative to the node's log directory"),
		),
		mcp.WithNumber(
			"from",
			mcp.Required(),
			mcp.Description("First line number"),
		),
		mcp.WithNumber(
			"to",
			mcp.Required(),
			mcp.Description("Last line number"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g, idx, errResult := resolveGroup(deps, req)
		if errResult != nil {
			return errResult, nil
		}
		source, err := req.RequireString("source")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		file, err := req.RequireString("file")
		if err != nil || trimString(file) == "" {
			return NewErrorResult("invalid_parameters", "file parameter cannot be empty"), nil
		}
		from, okFrom := getOptionalFloat(req, "from")
		to, okTo := getOptionalFloat(req, "to")
		if !okFrom || !okTo {
			return NewErrorResult("invalid_parameters", "from and to must be numbers"), nil
		}
		if to < from {
			return NewErrorResult("invalid_parameters", "to must not be less than from"), nil
		}

		lines, err := deps.Conn.FilePart(ctx, idx, source, file, int(from), int(to))
		if err != nil {
			return toolError(err)
		}
		return jsonResult(deps.newLinesResult(g.Name(), source, lines, maxLineLimit))
	})
}

func registerSearchRecordsTool(s *server.MCPServer, deps *LogToolDeps) {
	tool := mcp.NewTool(
		"search_records",
		mcp.WithDescription(
			"Searches whole multi-line log records (such as stack traces) in the files of a file group "+
				"source. Records start at a 'YYYY-MM-DD hh:mm:ss,mmm' timestamp.",
		),
		mcp.WithString(
			"group",
			mcp.Required(),
			mcp.Description("File node group index or name"),
		),
		mcp.WithString(
			"source",
			mcp.Required(),
			mcp.Description("Source name as listed by list_sources"),
		),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Text the record must contain"),
		),
		mcp.WithString(
			"date",
			mcp.Description("Only files modified on or after this date (YYYY-MM-DD)"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description(fmt.Sprintf("Maximum number of lines to return (default %d, max %d)", defaultLineLimit, maxLineLimit)),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g, idx, errResult := resolveGroup(deps, req)
		if errResult != nil {
			return errResult, nil
		}
		source, err := req.RequireString("source")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		query, err := req.RequireString("query")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		lines, err := deps.Conn.SearchExtended(ctx, idx, source, query, getOptionalString(req, "date"))
		if err != nil {
			return toolError(err)
		}
		return jsonResult(deps.newLinesResult(g.Name(), source, lines, lineLimit(req)))
	})
}

// resolveGroup looks up the group named by the "group" argument.
func resolveGroup(deps *LogToolDeps, req mcp.CallToolRequest) (*engine.NodeGroup, int, *mcp.CallToolResult) {
	ref := getGroupRef(req)
	if ref == "" {
		return nil, -1, NewErrorResult("invalid_parameters", "group parameter is required")
	}
	idx, err := deps.Conn.ResolveGroup(ref)
	if err != nil {
		return nil, -1, NewErrorResultWithDetails("unknown_group", err.Error(), map[string]any{
			"groups": deps.Conn.GroupNames(),
		})
	}
	g, err := deps.Conn.Group(idx)
	if err != nil {
		return nil, -1, NewErrorResult("unknown_group", err.Error())
	}
	return g, idx, nil
}

func lineLimit(req mcp.CallToolRequest) int {
	limit := defaultLineLimit
	if v, ok := getOptionalFloat(req, "limit"); ok && v > 0 {
		limit = int(v)
	}
	if limit > maxLineLimit {
		limit = maxLineLimit
	}
	return limit
}

func (deps *LogToolDeps) newLinesResult(group, source string, lines []string, limit int) linesResult {
	result := linesResult{Group: group, Source: source, LineCount: len(lines)}
	if len(lines) > limit {
		lines = lines[:limit]
		result.Truncated = true
	}
	if deps.Redactor != nil {
		lines = deps.Redactor.RedactLines(lines)
	}
	if lines == nil {
		lines = []string{}
	}
	result.Lines = lines
	return result
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
