package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	cryptossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/logging"
)

// Conn runs shell commands on a remote host over one SSH client connection.
// Every Execute opens a fresh session on that connection.
type Conn struct {
	logger *zap.Logger
	client *cryptossh.Client
	addr   string
}

// NewConn creates an unconnected SSH backend.
func NewConn(logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{logger: logger}
}

func (c *Conn) Connect(ctx context.Context, params backend.Params) error {
	cfg, err := FromParams(params)
	if err != nil {
		return err
	}

	auth, err := authMethods(cfg)
	if err != nil {
		return err
	}
	hostKeys, err := c.hostKeyCallback(cfg)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	clientCfg := &cryptossh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         cfg.Timeout,
	}

	dialer := net.Dialer{Timeout: cfg.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	_ = netConn.SetDeadline(handshakeDeadline(ctx, time.Now(), cfg.Timeout))
	stop := context.AfterFunc(ctx, func() { _ = netConn.Close() })
	sshConn, chans, reqs, err := cryptossh.NewClientConn(netConn, addr, clientCfg)
	stop()
	if err != nil {
		_ = netConn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	_ = netConn.SetDeadline(time.Time{})

	c.client = cryptossh.NewClient(sshConn, chans, reqs)
	c.addr = addr
	c.logger.Debug("SSH connection established",
		zap.String("addr", addr),
		zap.String("user", cfg.User),
		zap.Bool("key_auth", cfg.KeyFile != ""))
	return nil
}

// handshakeDeadline bounds the handshake by the timeout and the caller's
// context. A zero timeout means no limit; the zero time is returned when
// neither applies.
func handshakeDeadline(ctx context.Context, now time.Time, timeout time.Duration) time.Time {
	var deadline time.Time
	if timeout > 0 {
		deadline = now.Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}

func (c *Conn) Execute(ctx context.Context, command string) (*backend.Result, error) {
	if c.client == nil {
		return nil, apperrors.ErrNotConnected
	}

	session, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(cryptossh.SIGKILL)
		_ = session.Close()
		return nil, ctx.Err()
	case err = <-done:
	}

	if err != nil {
		var exitErr *cryptossh.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run command: %w", err)
		}
		// grep and friends exit non-zero when nothing matched
		c.logger.Debug("Remote command exited with non-zero status",
			zap.String("addr", c.addr),
			zap.Int("exit_status", exitErr.ExitStatus()),
			zap.String("stderr", logging.TruncateString(stderr.String(), 200)))
	}

	return &backend.Result{Lines: SplitLines(stdout.String())}, nil
}

func (c *Conn) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// SplitLines splits command output into lines without line terminators.
// A trailing newline does not produce an empty last line.
func SplitLines(out string) []string {
	if out == "" {
		return nil
	}
	out = strings.TrimSuffix(out, "\n")
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// authMethods prefers the private key when one is configured.
func authMethods(cfg *Config) ([]cryptossh.AuthMethod, error) {
	if cfg.KeyFile != "" {
		pemBytes, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		var signer cryptossh.Signer
		if cfg.KeyPassword != "" {
			signer, err = cryptossh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(cfg.KeyPassword))
		} else {
			signer, err = cryptossh.ParsePrivateKey(pemBytes)
		}
		if err != nil {
			return nil, fmt.Errorf("parse private key %s: %w", cfg.KeyFile, err)
		}
		return []cryptossh.AuthMethod{cryptossh.PublicKeys(signer)}, nil
	}

	password := cfg.Password
	return []cryptossh.AuthMethod{
		cryptossh.Password(password),
		cryptossh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}
			return answers, nil
		}),
	}, nil
}

func (c *Conn) hostKeyCallback(cfg *Config) (cryptossh.HostKeyCallback, error) {
	if cfg.KnownHostsPath == "" {
		c.logger.Warn("Host key verification disabled, no known_hosts file configured",
			zap.String("host", cfg.Host))
		return cryptossh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(cfg.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts: %w", err)
	}
	return cb, nil
}

// Ensure Conn implements backend.Conn at compile time.
var _ backend.Conn = (*Conn)(nil)
