package mssql

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/config"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// Config contains SQL Server connection options (SQL authentication).
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
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
	timeout, err := params.Int("connection_timeout", DefaultConnectionTimeout())
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Host:              host,
		Port:              port,
		Database:          params.Get(models.ParamDatabase),
		Username:          user,
		Password:          params.Get(models.ParamPassword),
		Encrypt:           true,
		ConnectionTimeout: timeout,
	}
	if v := params.Get("encrypt"); v != "" {
		if cfg.Encrypt, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("encrypt must be a boolean: %w", err)
		}
	}
	if v := params.Get("trust_server_certificate"); v != "" {
		if cfg.TrustServerCertificate, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("trust_server_certificate must be a boolean: %w", err)
		}
	}
	return cfg, nil
}

// buildDSN builds a sqlserver:// URL for SQL authentication.
func buildDSN(params backend.Params) (string, error) {
	cfg, err := FromParams(params)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if cfg.Database != "" {
		query.Add("database", cfg.Database)
	}
	query.Add("encrypt", strconv.FormatBool(cfg.Encrypt))
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", strconv.Itoa(cfg.ConnectionTimeout))
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.Username),
		url.QueryEscape(cfg.Password),
		config.ResolveHostForDocker(cfg.Host),
		cfg.Port,
		query.Encode(),
	), nil
}
