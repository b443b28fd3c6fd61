package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/config"
)

// Conn is a query backend holding a single PostgreSQL connection.
type Conn struct {
	logger *zap.Logger
	conn   *pgx.Conn
}

// NewConn creates an unconnected PostgreSQL backend.
func NewConn(logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{logger: logger}
}

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// All user-provided fields are URL-escaped so that passwords containing
// @, /, # or ? do not break URL parsing.
func buildConnectionString(cfg *Config) string {
	host := config.ResolveHostForDocker(cfg.Host)

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		host,
		cfg.Port,
		url.QueryEscape(cfg.Database),
		url.QueryEscape(cfg.SSLMode),
	)
}

func (c *Conn) Connect(ctx context.Context, params backend.Params) error {
	cfg, err := FromParams(params)
	if err != nil {
		return err
	}

	conn, err := pgx.Connect(ctx, buildConnectionString(cfg))
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}

	c.conn = conn
	c.logger.Debug("PostgreSQL connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database))
	return nil
}

func (c *Conn) Execute(ctx context.Context, command string) (*backend.Result, error) {
	if c.conn == nil {
		return nil, apperrors.ErrNotConnected
	}

	rows, err := c.conn.Query(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	result := &backend.Result{
		Columns: make([]string, len(fieldDescs)),
		Rows:    make([][]any, 0),
	}
	for i, fd := range fieldDescs {
		result.Columns[i] = fd.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}
	// Close must not hang on a dead server; give it a fresh context.
	err := c.conn.Close(context.Background())
	c.conn = nil
	return err
}

// Ensure Conn implements backend.Conn at compile time.
var _ backend.Conn = (*Conn)(nil)
