package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// This is used to return actionable error information to the model
// as a successful tool result, ensuring error details are visible
// rather than being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable/actionable errors that the caller can fix
// (e.g., invalid parameters, unknown node group or source).
//
// Do NOT use this for system failures - those should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
//
// Example:
//
//	return NewErrorResultWithDetails(
//	    "unknown_source",
//	    "no source named 'server' in group 'Audit DB'",
//	    map[string]any{"sources": []string{"events"}},
//	), nil
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// engineErrorCode returns the error code for an engine error the caller can
// act on, or "" for system failures.
func engineErrorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnknownGroup), errors.Is(err, apperrors.ErrGroupIndexOutOfRange):
		return "unknown_group"
	case errors.Is(err, apperrors.ErrUnknownSource):
		return "unknown_source"
	case errors.Is(err, apperrors.ErrUnsupportedGroupKind):
		return "unsupported_group_kind"
	}
	return ""
}

// toolError converts err into a structured error result when it is
// actionable. Otherwise it returns err unchanged for the protocol layer.
func toolError(err error) (*mcp.CallToolResult, error) {
	if code := engineErrorCode(err); code != "" {
		return NewErrorResult(code, err.Error()), nil
	}
	return nil, err
}
