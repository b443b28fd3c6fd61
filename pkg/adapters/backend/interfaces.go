package backend

import "context"

// Kind is the result model of a backend.
type Kind string

const (
	// KindShell backends run a command line and return stdout lines.
	KindShell Kind = "shell"
	// KindQuery backends run one statement and return rows.
	KindQuery Kind = "query"
)

// Conn is one transport-level session to a node.
// A Conn is used by a single goroutine for one connect/execute/close cycle.
type Conn interface {
	// Connect opens the session using the node parameters.
	Connect(ctx context.Context, params Params) error

	// Execute runs exactly one command or statement on the open session.
	// Returns ErrNotConnected when called before a successful Connect.
	Execute(ctx context.Context, command string) (*Result, error)

	// Close releases the session. Closing a Conn that never connected is a no-op.
	Close() error
}

// Result is the raw output of one Execute call.
type Result struct {
	// Lines is set by shell backends, without trailing newline characters.
	Lines []string `json:"lines,omitempty"`

	// Columns and Rows are set by query backends. Rows follow column order.
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`
}

// Empty reports whether the result carries no lines and no rows.
func (r *Result) Empty() bool {
	return r == nil || (len(r.Lines) == 0 && len(r.Rows) == 0)
}
