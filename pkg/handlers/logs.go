package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/engine"
	"github.com/ekaya-inc/ekaya-logscope/pkg/markup"
)

// GroupResponse describes one node group.
type GroupResponse struct {
	Index   int                 `json:"index"`
	Name    string              `json:"name"`
	Kind    string              `json:"kind"`
	Nodes   []string            `json:"nodes"`
	Sources []engine.SourceItem `json:"sources"`
	Columns []string            `json:"columns"`
	Sorted  bool                `json:"sorted"`
}

// ListGroupsResponse wraps array for frontend compatibility.
type ListGroupsResponse struct {
	Groups []GroupResponse `json:"groups"`
}

// ListSourcesResponse wraps array for frontend compatibility.
type ListSourcesResponse struct {
	Sources []engine.SourceItem `json:"sources"`
}

// NodeResponse describes one node. Parameters are never exposed.
type NodeResponse struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Backend string `json:"backend"`
	Kind    string `json:"kind"`
}

// ListNodesResponse wraps array for frontend compatibility.
type ListNodesResponse struct {
	Nodes []NodeResponse `json:"nodes"`
}

// SearchRequest for POST search body.
type SearchRequest struct {
	Source string `json:"source"`
	Query  string `json:"query"`
	Date   string `json:"date,omitempty"`
	Table  bool   `json:"table,omitempty"`
	// Tag and TagValue keep only lines carrying the same XML tag value.
	Tag      string `json:"tag,omitempty"`
	TagValue string `json:"tag_value,omitempty"`
}

// ExecRequest for POST exec body.
type ExecRequest struct {
	Source  string `json:"source"`
	Command string `json:"command"`
}

// FilePartRequest for POST file-part body.
type FilePartRequest struct {
	Source string `json:"source"`
	File   string `json:"file"`
	From   int    `json:"from"`
	To     int    `json:"to"`
}

// SearchExtendedRequest for POST search-extended body.
type SearchExtendedRequest struct {
	Source string `json:"source"`
	Query  string `json:"query"`
	Date   string `json:"date,omitempty"`
}

// LogsHandler exposes node group operations over HTTP.
type LogsHandler struct {
	conn      *engine.Connection
	allowExec bool
	logger    *zap.Logger
}

// NewLogsHandler creates a new logs handler. The exec route, which runs
// arbitrary commands on every node of a group, is only registered when
// allowExec is set.
func NewLogsHandler(conn *engine.Connection, allowExec bool, logger *zap.Logger) *LogsHandler {
	return &LogsHandler{
		conn:      conn,
		allowExec: allowExec,
		logger:    logger,
	}
}

// RegisterRoutes registers the logs handler's routes on the given mux.
func (h *LogsHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/groups"

	mux.HandleFunc("GET "+base, h.ListGroups)
	mux.HandleFunc("GET "+base+"/{index}/sources", h.ListSources)
	mux.HandleFunc("GET "+base+"/{index}/nodes", h.ListNodes)

	mux.HandleFunc("POST "+base+"/{index}/search", h.Search)
	mux.HandleFunc("POST "+base+"/{index}/file-part", h.FilePart)
	mux.HandleFunc("POST "+base+"/{index}/search-extended", h.SearchExtended)

	if h.allowExec {
		mux.HandleFunc("POST "+base+"/{index}/exec", h.Exec)
	}
}

// ListGroups handles GET /api/groups
func (h *LogsHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups := h.conn.Groups()
	response := ListGroupsResponse{Groups: make([]GroupResponse, len(groups))}
	for i, g := range groups {
		patterns := g.Patterns()
		columns := make([]string, len(patterns.Columns))
		for j, c := range patterns.Columns {
			columns[j] = c.Name
		}
		response.Groups[i] = GroupResponse{
			Index:   i,
			Name:    g.Name(),
			Kind:    string(g.Kind()),
			Nodes:   g.NodeNames(),
			Sources: g.SourceItems(),
			Columns: columns,
			Sorted:  patterns.Sort.IsActive(),
		}
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// ListSources handles GET /api/groups/{index}/sources
func (h *LogsHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	g, ok := h.group(w, r)
	if !ok {
		return
	}

	if err := WriteJSON(w, http.StatusOK, ListSourcesResponse{Sources: g.SourceItems()}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// ListNodes handles GET /api/groups/{index}/nodes
func (h *LogsHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	g, ok := h.group(w, r)
	if !ok {
		return
	}

	nodes := g.Nodes()
	response := ListNodesResponse{Nodes: make([]NodeResponse, len(nodes))}
	for i, n := range nodes {
		response.Nodes[i] = NodeResponse{
			Name:    n.Name(),
			Address: n.Address(),
			Backend: n.Backend(),
			Kind:    string(n.Kind()),
		}
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Search handles POST /api/groups/{index}/search
func (h *LogsHandler) Search(w http.ResponseWriter, r *http.Request) {
	idx, ok := ParseGroupIndex(w, r, h.logger)
	if !ok {
		return
	}

	var req SearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Source == "" {
		h.badRequest(w, "missing_source", "Source is required")
		return
	}

	lines, err := h.conn.Search(r.Context(), idx, req.Source, req.Query, req.Date)
	if err != nil {
		h.operationError(w, "search", err)
		return
	}
	if req.Tag != "" {
		lines = markup.FilterByTag(lines, req.Tag, req.TagValue)
	}

	response := NewLinesResponse(lines)
	if req.Table {
		// The group exists: Search succeeded for the same index.
		g, _ := h.conn.Group(idx)
		table := g.Columns(lines)
		response.Table = &table
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Exec handles POST /api/groups/{index}/exec
func (h *LogsHandler) Exec(w http.ResponseWriter, r *http.Request) {
	idx, ok := ParseGroupIndex(w, r, h.logger)
	if !ok {
		return
	}

	var req ExecRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Source == "" || req.Command == "" {
		h.badRequest(w, "missing_command", "Source and command are required")
		return
	}

	lines, err := h.conn.ExecCmd(r.Context(), idx, req.Source, req.Command)
	h.writeLines(w, "exec", lines, err)
}

// FilePart handles POST /api/groups/{index}/file-part
func (h *LogsHandler) FilePart(w http.ResponseWriter, r *http.Request) {
	idx, ok := ParseGroupIndex(w, r, h.logger)
	if !ok {
		return
	}

	var req FilePartRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Source == "" || req.File == "" {
		h.badRequest(w, "missing_file", "Source and file are required")
		return
	}
	if req.To < req.From {
		h.badRequest(w, "invalid_range", "Line range end precedes its start")
		return
	}

	lines, err := h.conn.FilePart(r.Context(), idx, req.Source, req.File, req.From, req.To)
	h.writeLines(w, "file_part", lines, err)
}

// SearchExtended handles POST /api/groups/{index}/search-extended
func (h *LogsHandler) SearchExtended(w http.ResponseWriter, r *http.Request) {
	idx, ok := ParseGroupIndex(w, r, h.logger)
	if !ok {
		return
	}

	var req SearchExtendedRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Source == "" {
		h.badRequest(w, "missing_source", "Source is required")
		return
	}

	lines, err := h.conn.SearchExtended(r.Context(), idx, req.Source, req.Query, req.Date)
	h.writeLines(w, "search_extended", lines, err)
}

func (h *LogsHandler) group(w http.ResponseWriter, r *http.Request) (*engine.NodeGroup, bool) {
	idx, ok := ParseGroupIndex(w, r, h.logger)
	if !ok {
		return nil, false
	}
	g, err := h.conn.Group(idx)
	if err != nil {
		if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Node group not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	return g, true
}

func (h *LogsHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := DecodeJSON(w, r, dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNotJSON):
		if err := ErrorResponse(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
	default:
		h.badRequest(w, "invalid_request", "Invalid request body")
	}
	return false
}

func (h *LogsHandler) badRequest(w http.ResponseWriter, code, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *LogsHandler) writeLines(w http.ResponseWriter, op string, lines []string, err error) {
	if err != nil {
		h.operationError(w, op, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, NewLinesResponse(lines)); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// operationError maps engine errors to HTTP status codes.
func (h *LogsHandler) operationError(w http.ResponseWriter, op string, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperrors.ErrGroupIndexOutOfRange), errors.Is(err, apperrors.ErrUnknownSource):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrUnsupportedGroupKind):
		status, code = http.StatusBadRequest, "unsupported_group_kind"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful can be written.
		h.logger.Debug("Operation canceled", zap.String("operation", op))
		return
	default:
		h.logger.Error("Operation failed", zap.String("operation", op), zap.Error(err))
	}

	if err := ErrorResponse(w, status, code, err.Error()); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
