package backend

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/logging"
)

// DSNBuilder turns node parameters into a driver data source name.
type DSNBuilder func(params Params) (string, error)

// SQLConn is a query backend over database/sql holding one dedicated
// connection for the lifetime of a connect/close cycle.
type SQLConn struct {
	driver   string
	buildDSN DSNBuilder
	logger   *zap.Logger

	db   *sql.DB
	conn *sql.Conn
}

// NewSQLConn creates an unconnected SQLConn for a registered database/sql driver.
func NewSQLConn(driver string, buildDSN DSNBuilder, logger *zap.Logger) *SQLConn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLConn{driver: driver, buildDSN: buildDSN, logger: logger}
}

func (c *SQLConn) Connect(ctx context.Context, params Params) error {
	dsn, err := c.buildDSN(params)
	if err != nil {
		return err
	}

	db, err := sql.Open(c.driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s connection: %s", c.driver, logging.SanitizeConnectionString(err.Error()))
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("connect to %s: %w", c.driver, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return fmt.Errorf("ping failed: %w", err)
	}

	c.db, c.conn = db, conn
	c.logger.Debug("Connected", zap.String("driver", c.driver))
	return nil
}

func (c *SQLConn) Execute(ctx context.Context, command string) (*Result, error) {
	if c.conn == nil {
		return nil, apperrors.ErrNotConnected
	}

	rows, err := c.conn.QueryContext(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return ScanRows(rows)
}

func (c *SQLConn) Close() error {
	if c.db == nil {
		return nil
	}
	var firstErr error
	if c.conn != nil {
		firstErr = c.conn.Close()
	}
	if err := c.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	c.db, c.conn = nil, nil
	return firstErr
}

// ScanRows reads all rows into a Result. []byte values are copied to strings.
func ScanRows(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	result := &Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// Ensure SQLConn implements Conn at compile time.
var _ Conn = (*SQLConn)(nil)
