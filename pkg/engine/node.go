package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/audit"
	"github.com/ekaya-inc/ekaya-logscope/pkg/logging"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
	"github.com/ekaya-inc/ekaya-logscope/pkg/retry"
	"github.com/ekaya-inc/ekaya-logscope/pkg/sql"
)

// NodeOptions are applied to every node of a topology.
type NodeOptions struct {
	// DefaultParams fill in node parameters the topology leaves unset.
	DefaultParams map[string]string
	// ConnectRetries is the number of extra connect attempts on transient failures.
	ConnectRetries int
	// BlockSuspiciousSearch refuses search text that looks like SQL injection on
	// query nodes instead of only logging it.
	BlockSuspiciousSearch bool
	// Auditor receives security events. Nil disables auditing.
	Auditor *audit.SecurityAuditor
}

// Node is one endpoint of a node group. Shell and query nodes share this type;
// the difference lives in the dialect chosen from the backend kind.
//
// A node is DISCONNECTED until Connect succeeds and again after Close.
type Node struct {
	cfg     models.NodeConfig
	kind    backend.Kind
	params  backend.Params
	dialect dialect
	factory backend.Factory
	tracer  Tracer
	logger  *zap.Logger
	retry   *retry.Config
	block   bool
	auditor *audit.SecurityAuditor

	// cycle serializes connect/execute/close cycles of concurrent group operations.
	cycle sync.Mutex

	mu   sync.Mutex // guards conn
	conn backend.Conn
}

func newNode(cfg models.NodeConfig, factory backend.Factory, opts NodeOptions, tracer Tracer, logger *zap.Logger) (*Node, error) {
	kind, err := factory.Kind(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", cfg.Name, err)
	}

	params := make(backend.Params, len(opts.DefaultParams)+len(cfg.Params))
	for k, v := range opts.DefaultParams {
		params[k] = v
	}
	for k, v := range cfg.Params {
		if v != "" {
			params[k] = v
		}
	}

	return &Node{
		cfg:     cfg,
		kind:    kind,
		params:  params,
		dialect: newDialect(kind, params),
		factory: factory,
		tracer:  tracer,
		logger:  logger.With(zap.String("node", cfg.Name), zap.String("backend", cfg.Backend)),
		retry:   retry.WithRetries(opts.ConnectRetries),
		block:   opts.BlockSuspiciousSearch,
		auditor: opts.Auditor,
	}, nil
}

func (n *Node) Name() string       { return n.cfg.Name }
func (n *Node) Address() string    { return n.cfg.Address() }
func (n *Node) Backend() string    { return n.cfg.Backend }
func (n *Node) Kind() backend.Kind { return n.kind }
func (n *Node) Connected() bool    { return n.current() != nil }

func (n *Node) current() backend.Conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conn
}

// release detaches the open session, if any, and closes it.
func (n *Node) release() bool {
	n.mu.Lock()
	conn := n.conn
	n.conn = nil
	n.mu.Unlock()

	if conn == nil {
		return false
	}
	if err := conn.Close(); err != nil {
		n.logger.Debug("Close failed", zap.String("error", logging.SanitizeError(err)))
	}
	return true
}

// Connect opens a backend session with the node parameters. Exactly one trace
// line is emitted whatever the outcome. A session left open by an earlier
// Connect is closed first. A failed connect leaves the node disconnected.
func (n *Node) Connect(ctx context.Context) bool {
	if n.release() {
		n.logger.Debug("Replaced open session")
	}

	err := n.connect(ctx)
	if err != nil {
		cerr := &apperrors.ConnectionError{Node: n.cfg.Name, Address: n.Address(), Err: err}
		n.logger.Warn("Connect failed", zap.String("error", logging.SanitizeError(cerr)))
		n.tracer.Trace(fmt.Sprintf("Connecting to '%s' FAILED, [%s]", n.Address(), logging.SanitizeError(err)), true)
		return false
	}
	n.tracer.Trace(fmt.Sprintf("Connecting to '%s' OK", n.Address()), false)
	return true
}

func (n *Node) connect(ctx context.Context) error {
	conn, _, err := n.factory.NewConn(n.cfg.Backend)
	if err != nil {
		return err
	}
	err = retry.DoIfRetryable(ctx, n.retry, func() error {
		return conn.Connect(ctx, n.params)
	})
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.conn = conn
	n.mu.Unlock()
	return nil
}

// Close releases the session. It does nothing on a disconnected node.
func (n *Node) Close() {
	if !n.release() {
		return
	}
	n.tracer.Trace(fmt.Sprintf("Connection to '%s' was closed", n.Address()), false)
}

// PrepareInCmd turns a command into what the backend executes.
// Shell nodes change into the remote working directory first; query nodes
// normalize the statement.
func (n *Node) PrepareInCmd(src models.Source, cmd string) (string, error) {
	return n.dialect.prepareIn(src, cmd)
}

// PrepareOutStr normalizes a raw backend result into lines.
func (n *Node) PrepareOutStr(res *backend.Result, src models.Source) []string {
	return n.dialect.prepareOut(res, src)
}

// PrepareSearchCmd fills the source template for a search.
func (n *Node) PrepareSearchCmd(src models.Source, searchStr, searchDate string) string {
	return PrepareSearchCmd(src, searchStr, searchDate)
}

// ExecCmd runs cmd on the open session and returns its lines. A disconnected
// node returns nothing. Failures are returned as *apperrors.ExecutionError;
// the lines are always nil in that case.
func (n *Node) ExecCmd(ctx context.Context, src models.Source, cmd string) ([]string, error) {
	conn := n.current()
	if conn == nil {
		return nil, nil
	}
	n.tracer.Trace(fmt.Sprintf("Execute command '%s'", cmd), false)

	prepared, err := n.PrepareInCmd(src, cmd)
	if err != nil {
		return nil, n.execError(cmd, err)
	}

	n.logger.Debug("Executing", zap.String("command", logging.SanitizeCommand(prepared)))
	res, err := conn.Execute(ctx, prepared)
	if err != nil {
		return nil, n.execError(cmd, err)
	}
	return n.PrepareOutStr(res, src), nil
}

// Search fills the source template and executes it.
func (n *Node) Search(ctx context.Context, src models.Source, searchStr, searchDate string) ([]string, error) {
	if n.current() == nil {
		return nil, nil
	}

	if n.kind == backend.KindQuery {
		if res := sql.CheckSearchText(searchStr); res != nil {
			n.logger.Warn("Search text looks like SQL injection",
				zap.String("source", src.Name),
				zap.String("fingerprint", res.Fingerprint),
				zap.Bool("blocked", n.block))
			n.auditor.LogInjectionAttempt(ctx, n.cfg.Name, src.Name, audit.SQLInjectionDetails{
				SearchText:  searchStr,
				Fingerprint: res.Fingerprint,
				Blocked:     n.block,
			})
			if n.block {
				return nil, n.execError(searchStr, apperrors.ErrSuspiciousSearch)
			}
		}
	}

	return n.ExecCmd(ctx, src, n.PrepareSearchCmd(src, searchStr, searchDate))
}

// session runs fn inside one connect/close cycle. connected is false when the
// node could not be reached; fn is not called then.
func (n *Node) session(ctx context.Context, fn func() ([]string, error)) (lines []string, connected bool, err error) {
	n.cycle.Lock()
	defer n.cycle.Unlock()

	if !n.Connect(ctx) {
		return nil, false, nil
	}
	defer n.Close()

	lines, err = fn()
	return lines, true, err
}

func (n *Node) execError(cmd string, err error) error {
	return &apperrors.ExecutionError{Node: n.cfg.Name, Command: cmd, Err: err}
}
