package postgres

import (
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
)

func init() {
	backend.Register(backend.BackendRegistration{
		Info: backend.BackendInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Query log tables in PostgreSQL 12+",
			Kind:        backend.KindQuery,
		},
		New: func(logger *zap.Logger) backend.Conn {
			return NewConn(logger)
		},
	})
}
