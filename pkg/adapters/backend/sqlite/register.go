package sqlite

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// NewConn creates an unconnected SQLite backend.
func NewConn(logger *zap.Logger) *backend.SQLConn {
	return backend.NewSQLConn("sqlite", buildDSN, logger)
}

// buildDSN uses the database parameter as the file path, falling back to
// the node address. Connections are query-only unless read_only=false.
func buildDSN(params backend.Params) (string, error) {
	path := params.Get(models.ParamDatabase)
	if path == "" {
		path = params.Get(models.ParamHost)
	}
	if path == "" {
		return "", fmt.Errorf("database is required")
	}

	readOnly := true
	if v := params.Get("read_only"); v != "" {
		var err error
		if readOnly, err = strconv.ParseBool(v); err != nil {
			return "", fmt.Errorf("read_only must be a boolean: %w", err)
		}
	}
	if readOnly {
		return path + "?_pragma=query_only(1)", nil
	}
	return path, nil
}

func init() {
	backend.Register(backend.BackendRegistration{
		Info: backend.BackendInfo{
			Type:        "sqlite",
			DisplayName: "SQLite",
			Description: "Query log tables in a local SQLite database file",
			Kind:        backend.KindQuery,
		},
		New: func(logger *zap.Logger) backend.Conn {
			return NewConn(logger)
		},
	})
}
