package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "config.yaml"

// Config holds all configuration for ekaya-logscope.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// SecretKey unseals "enc:" values in the topology. Secret - not in YAML.
	SecretKey string `yaml:"-" env:"LOGSCOPE_SECRET_KEY"`

	// TopologyPath is the node group topology document (.xml, .yaml or .toml).
	TopologyPath string `yaml:"topology_path" env:"TOPOLOGY_PATH" env-default:"topology.xml"`

	Log    LogConfig    `yaml:"log"`
	Fanout FanoutConfig `yaml:"fanout"`
	SSH    SSHConfig    `yaml:"ssh"`
	Query  QueryConfig  `yaml:"query"`
	HTTP   HTTPConfig   `yaml:"http"`
	MCP    MCPConfig    `yaml:"mcp"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"` // "console" or "json"
}

// FanoutConfig controls how node group operations are spread across nodes.
type FanoutConfig struct {
	// MaxWorkers bounds concurrent node operations per group operation. 1 is sequential.
	MaxWorkers int `yaml:"max_workers" env:"FANOUT_MAX_WORKERS" env-default:"4"`
	// ConnectRetries is the number of extra connect attempts for transient failures.
	ConnectRetries int `yaml:"connect_retries" env:"FANOUT_CONNECT_RETRIES" env-default:"0"`
}

// SSHConfig holds defaults applied to every shell node.
type SSHConfig struct {
	// KnownHostsPath enables host key verification. Empty accepts any host key.
	KnownHostsPath string `yaml:"known_hosts_path" env:"SSH_KNOWN_HOSTS" env-default:""`
	// TimeoutSeconds bounds dial and handshake. 0 disables the limit.
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"SSH_TIMEOUT_SECONDS" env-default:"15"`
}

// NodeParams returns the SSH defaults as node parameters.
// Parameters set on a node in the topology take precedence.
func (c *SSHConfig) NodeParams() map[string]string {
	params := map[string]string{
		"timeout_seconds": strconv.Itoa(c.TimeoutSeconds),
	}
	if c.KnownHostsPath != "" {
		params["known_hosts_path"] = c.KnownHostsPath
	}
	return params
}

// QueryConfig holds settings for query (database) nodes.
type QueryConfig struct {
	// BlockSuspiciousSearch refuses search text that looks like SQL injection
	// instead of only logging a warning.
	BlockSuspiciousSearch bool `yaml:"block_suspicious_search" env:"QUERY_BLOCK_SUSPICIOUS_SEARCH" env-default:"false"`
}

// HTTPConfig controls the group API served by "serve".
type HTTPConfig struct {
	// AllowExec registers POST /api/groups/{index}/exec, which runs arbitrary commands on nodes.
	AllowExec bool `yaml:"allow_exec" env:"HTTP_ALLOW_EXEC" env-default:"false"`
}

// MCPConfig controls the tools offered to MCP clients.
type MCPConfig struct {
	// AllowExec offers exec_command, which runs arbitrary commands on nodes.
	AllowExec bool `yaml:"allow_exec" env:"MCP_ALLOW_EXEC" env-default:"false"`
	// RedactSecrets masks passwords, tokens and keys in lines sent to MCP clients.
	RedactSecrets bool `yaml:"redact_secrets" env:"MCP_REDACT_SECRETS" env-default:"true"`
}

// Load reads configuration from path with environment variable overrides.
// When path is empty DefaultPath is used; a missing file means environment only.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := c.validateTLS(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}
	if c.Fanout.MaxWorkers < 1 {
		return fmt.Errorf("fanout.max_workers must be at least 1, got %d", c.Fanout.MaxWorkers)
	}
	if c.Fanout.ConnectRetries < 0 {
		return fmt.Errorf("fanout.connect_retries must not be negative, got %d", c.Fanout.ConnectRetries)
	}
	if c.SSH.TimeoutSeconds < 0 {
		return fmt.Errorf("ssh.timeout_seconds must not be negative, got %d", c.SSH.TimeoutSeconds)
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}
