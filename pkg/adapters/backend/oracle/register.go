package oracle

import (
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
)

// NewConn creates an unconnected Oracle backend.
func NewConn(logger *zap.Logger) *backend.SQLConn {
	return backend.NewSQLConn("oracle", buildDSN, logger)
}

func init() {
	backend.Register(backend.BackendRegistration{
		Info: backend.BackendInfo{
			Type:        "oracle",
			DisplayName: "Oracle Database",
			Description: "Query log tables in Oracle by SID or service name (pure Go driver)",
			Kind:        backend.KindQuery,
		},
		New: func(logger *zap.Logger) backend.Conn {
			return NewConn(logger)
		},
	})
}
