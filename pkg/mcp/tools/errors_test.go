package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
)

// getTextContent extracts the text string from the first text content item
func getTextContent(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	// The Content slice contains mcp.Content interface types
	// We need to marshal and unmarshal to extract the text
	jsonBytes, _ := json.Marshal(result.Content[0])
	var textContent struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	_ = json.Unmarshal(jsonBytes, &textContent)
	return textContent.Text
}

func TestNewErrorResult(t *testing.T) {
	result := NewErrorResult("test_error", "this is a test error")

	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	assert.True(t, result.IsError)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &errResp))

	assert.True(t, errResp.Error, "error field should be true")
	assert.Equal(t, "test_error", errResp.Code)
	assert.Equal(t, "this is a test error", errResp.Message)
	assert.Nil(t, errResp.Details, "details should be nil when not provided")
}

func TestNewErrorResultWithDetails(t *testing.T) {
	result := NewErrorResultWithDetails("unknown_source", "no such source", map[string]any{
		"sources": []string{"events", "server"},
	})

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &errResp))
	assert.Equal(t, "unknown_source", errResp.Code)

	details, ok := errResp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"events", "server"}, details["sources"])
}

func TestToolError(t *testing.T) {
	tests := []struct {
		err      error
		wantCode string
	}{
		{fmt.Errorf("%w: %q", apperrors.ErrUnknownGroup, "web"), "unknown_group"},
		{fmt.Errorf("%w: 9 (have 2)", apperrors.ErrGroupIndexOutOfRange), "unknown_group"},
		{fmt.Errorf("%w: nope", apperrors.ErrUnknownSource), "unknown_source"},
		{fmt.Errorf("%w: database group", apperrors.ErrUnsupportedGroupKind), "unsupported_group_kind"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			result, err := toolError(tt.err)
			require.NoError(t, err)
			require.NotNil(t, result)

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &errResp))
			assert.Equal(t, tt.wantCode, errResp.Code)
			assert.Equal(t, tt.err.Error(), errResp.Message)
		})
	}

	sysErr := errors.New("context deadline exceeded")
	result, err := toolError(sysErr)
	assert.Nil(t, result)
	assert.Same(t, sysErr, err)
}
