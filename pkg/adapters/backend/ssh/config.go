package ssh

import (
	"fmt"
	"time"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// Config contains SSH connection options.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	KeyFile        string
	KeyPassword    string
	KnownHostsPath string        // empty accepts any host key
	Timeout        time.Duration // dial and handshake; 0 means no timeout
}

// DefaultPort returns the default SSH port.
func DefaultPort() int {
	return 22
}

// DefaultTimeout returns the default dial and handshake timeout.
func DefaultTimeout() time.Duration {
	return 15 * time.Second
}

// FromParams creates a Config from node parameters.
// The host parameter may carry the port as "host:port".
func FromParams(params backend.Params) (*Config, error) {
	host, port, err := params.SplitHostPort(models.ParamHost, DefaultPort())
	if err != nil {
		return nil, err
	}
	user, err := params.Require(models.ParamUser)
	if err != nil {
		return nil, err
	}
	timeout, err := params.Seconds(models.ParamTimeout, DefaultTimeout())
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Host:           host,
		Port:           port,
		User:           user,
		Password:       params.Get(models.ParamPassword),
		KeyFile:        params.Get(models.ParamKeyFile),
		KeyPassword:    params.Get(models.ParamKeyPassword),
		KnownHostsPath: params.Get(models.ParamKnownHosts),
		Timeout:        timeout,
	}
	if cfg.Password == "" && cfg.KeyFile == "" {
		return nil, fmt.Errorf("password or key_file is required")
	}
	return cfg, nil
}
