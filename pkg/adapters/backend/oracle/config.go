package oracle

import (
	"fmt"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/config"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// Config contains Oracle connection options. Exactly one of SID and
// ServiceName identifies the database; SID wins when both are set.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	SID         string
	ServiceName string
}

// DefaultPort returns the default Oracle listener port.
func DefaultPort() int {
	return 1521
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

	cfg := &Config{
		Host:        host,
		Port:        port,
		User:        user,
		Password:    params.Get(models.ParamPassword),
		SID:         params.Get(models.ParamSID),
		ServiceName: params.Get(models.ParamServiceName),
	}
	if cfg.SID == "" && cfg.ServiceName == "" {
		return nil, fmt.Errorf("sid or service_name is required")
	}
	return cfg, nil
}

// buildDSN builds an oracle:// URL through go-ora.
func buildDSN(params backend.Params) (string, error) {
	cfg, err := FromParams(params)
	if err != nil {
		return "", err
	}

	host := config.ResolveHostForDocker(cfg.Host)
	if cfg.SID != "" {
		return go_ora.BuildUrl(host, cfg.Port, "", cfg.User, cfg.Password, map[string]string{"SID": cfg.SID}), nil
	}
	return go_ora.BuildUrl(host, cfg.Port, cfg.ServiceName, cfg.User, cfg.Password, nil), nil
}
