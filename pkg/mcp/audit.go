package mcp

import (
	"context"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/logging"
)

// maxParamSize is the maximum length of a string argument written to the log.
const maxParamSize = 200

// ToolCallLogger writes one log entry per MCP tool call.
type ToolCallLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewToolCallLogger creates a ToolCallLogger.
func NewToolCallLogger(logger *zap.Logger) *ToolCallLogger {
	return &ToolCallLogger{logger: logger.Named("mcp-audit")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *ToolCallLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *ToolCallLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *ToolCallLogger) afterCallTool(_ context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	fields := a.fields(id, req)
	if result != nil && result.IsError {
		a.logger.Info("MCP tool call returned an error result", append(fields, zap.String("preview", preview(result)))...)
		return
	}
	a.logger.Info("MCP tool call", fields...)
}

func (a *ToolCallLogger) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}
	a.logger.Warn("MCP tool call failed",
		append(a.fields(id, req), zap.String("error", logging.SanitizeError(err)))...)
}

func (a *ToolCallLogger) fields(id any, req *mcplib.CallToolRequest) []zap.Field {
	start, ok := a.loadAndDeleteStart(id)
	fields := []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.Any("arguments", sanitizeParams(req.Params.Arguments)),
	}
	if ok {
		fields = append(fields, zap.Duration("duration", time.Since(start)))
	}
	return fields
}

func (a *ToolCallLogger) loadAndDeleteStart(id any) (time.Time, bool) {
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		return v.(time.Time), true
	}
	return time.Time{}, false
}

// sensitiveKeywords mark argument names whose values are never logged.
var sensitiveKeywords = []string{"password", "secret", "token", "credential"}

// sanitizeParams redacts sensitive arguments and truncates long strings.
func sanitizeParams(args any) map[string]any {
	params, ok := args.(map[string]any)
	if !ok || len(params) == 0 {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		sanitized[k] = sanitizeValue(k, v)
	}
	return sanitized
}

func sanitizeValue(key string, value any) any {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return "[REDACTED]"
		}
	}

	switch val := value.(type) {
	case string:
		if key == "command" {
			return logging.SanitizeCommand(val)
		}
		return logging.TruncateString(val, maxParamSize)
	case map[string]any:
		return sanitizeParams(val)
	default:
		return value
	}
}

// preview returns the start of the first text content of a result.
func preview(result *mcplib.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return logging.TruncateString(tc.Text, maxParamSize)
		}
	}
	return ""
}
