package mssql

import (
	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" database/sql driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
)

// NewConn creates an unconnected SQL Server backend.
func NewConn(logger *zap.Logger) *backend.SQLConn {
	return backend.NewSQLConn("sqlserver", buildDSN, logger)
}

func init() {
	backend.Register(backend.BackendRegistration{
		Info: backend.BackendInfo{
			Type:        "sqlserver",
			DisplayName: "Microsoft SQL Server",
			Description: "Query log tables in SQL Server 2016+ and Azure SQL (SQL authentication)",
			Kind:        backend.KindQuery,
		},
		New: func(logger *zap.Logger) backend.Conn {
			return NewConn(logger)
		},
	})
}
