package postgres

import (
	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "prefer", "require", "verify-ca", "verify-full"
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "prefer"
}

// FromParams creates a Config from node parameters.
func FromParams(params backend.Params) (*Config, error) {
	host, port, err := params.SplitHostPort(models.ParamHost, DefaultPort())
	if err != nil {
		return nil, err
	}
	user, err := params.Require(models.ParamUser)
	if err != nil {
		return nil, err
	}
	database, err := params.Require(models.ParamDatabase)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Host:     host,
		Port:     port,
		User:     user,
		Password: params.Get(models.ParamPassword),
		Database: database,
		SSLMode:  DefaultSSLMode(),
	}
	if mode := params.Get("ssl_mode"); mode != "" {
		cfg.SSLMode = mode
	}
	return cfg, nil
}
