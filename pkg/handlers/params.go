package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ParseGroupIndex extracts the node group index from the request path.
// Returns the index and true on success, or -1 and false on error
// (after writing an error response).
// Expects path parameter: index
func ParseGroupIndex(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int, bool) {
	return parseIndex(w, r, "index", "invalid_group_index", "Invalid node group index", logger)
}

func parseIndex(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (int, bool) {
	idx, err := strconv.Atoi(r.PathValue(pathParam))
	if err != nil || idx < 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return -1, false
	}
	return idx, true
}
