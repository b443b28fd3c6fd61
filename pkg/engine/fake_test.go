package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// fakeHost scripts the behavior of one node, keyed by its host parameter.
type fakeHost struct {
	connectErrs []error // consumed one per connect attempt; the last one repeats
	lines       []string
	result      *backend.Result
	execErr     error
	delay       time.Duration
}

// fakeFactory hands out fakeConns and records what they were asked to do.
type fakeFactory struct {
	kinds map[string]backend.Kind
	hosts map[string]*fakeHost

	mu        sync.Mutex
	events    []string
	commands  map[string][]string
	active    map[string]int
	maxActive map[string]int
	attempts  map[string]int
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		kinds: map[string]backend.Kind{
			"ssh":    backend.KindShell,
			"oracle": backend.KindQuery,
		},
		hosts:     map[string]*fakeHost{},
		commands:  map[string][]string{},
		active:    map[string]int{},
		maxActive: map[string]int{},
		attempts:  map[string]int{},
	}
}

func (f *fakeFactory) Kind(backendType string) (backend.Kind, error) {
	kind, ok := f.kinds[backendType]
	if !ok {
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedBackend, backendType)
	}
	return kind, nil
}

func (f *fakeFactory) NewConn(backendType string) (backend.Conn, backend.Kind, error) {
	kind, err := f.Kind(backendType)
	if err != nil {
		return nil, "", err
	}
	return &fakeConn{f: f}, kind, nil
}

func (f *fakeFactory) ListTypes() []backend.BackendInfo { return nil }

func (f *fakeFactory) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, fmt.Sprintf(format, args...))
}

func (f *fakeFactory) eventsFor(host string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if strings.HasSuffix(e, " "+host) {
			out = append(out, strings.TrimSuffix(e, " "+host))
		}
	}
	return out
}

func (f *fakeFactory) commandsFor(host string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands[host]...)
}

type fakeConn struct {
	f    *fakeFactory
	host string
}

func (c *fakeConn) Connect(ctx context.Context, params backend.Params) error {
	host := params.Get(models.ParamHost)
	h, ok := c.f.hosts[host]
	if !ok {
		return errors.New("no such host")
	}

	c.f.mu.Lock()
	attempt := c.f.attempts[host]
	c.f.attempts[host]++
	c.f.mu.Unlock()

	if len(h.connectErrs) > 0 {
		i := min(attempt, len(h.connectErrs)-1)
		if err := h.connectErrs[i]; err != nil {
			c.f.record("connect-failed %s", host)
			return err
		}
	}

	c.host = host
	c.f.mu.Lock()
	c.f.active[host]++
	if c.f.active[host] > c.f.maxActive[host] {
		c.f.maxActive[host] = c.f.active[host]
	}
	c.f.mu.Unlock()
	c.f.record("connect %s", host)
	return nil
}

func (c *fakeConn) Execute(ctx context.Context, command string) (*backend.Result, error) {
	if c.host == "" {
		return nil, apperrors.ErrNotConnected
	}
	h := c.f.hosts[c.host]

	c.f.mu.Lock()
	c.f.commands[c.host] = append(c.f.commands[c.host], command)
	c.f.mu.Unlock()
	c.f.record("execute %s", c.host)

	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if h.execErr != nil {
		return nil, h.execErr
	}
	if h.result != nil {
		return h.result, nil
	}
	return &backend.Result{Lines: append([]string(nil), h.lines...)}, nil
}

func (c *fakeConn) Close() error {
	if c.host == "" {
		return nil
	}
	c.f.mu.Lock()
	c.f.active[c.host]--
	c.f.mu.Unlock()
	c.f.record("close %s", c.host)
	c.host = ""
	return nil
}

type traceEntry struct {
	Message string
	IsError bool
}

type traceRecorder struct {
	mu      sync.Mutex
	entries []traceEntry
}

func (r *traceRecorder) Trace(message string, isError bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, traceEntry{Message: message, IsError: isError})
}

func (r *traceRecorder) all() []traceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]traceEntry(nil), r.entries...)
}

func (r *traceRecorder) errors() []string {
	var out []string
	for _, e := range r.all() {
		if e.IsError {
			out = append(out, e.Message)
		}
	}
	return out
}

func (r *traceRecorder) last() traceEntry {
	all := r.all()
	if len(all) == 0 {
		return traceEntry{}
	}
	return all[len(all)-1]
}

var appSource = models.Source{
	Name:       "app",
	SourceName: "app",
	Template:   "grep '{{search_str}}' {{source_name}}.log",
}

func shellNode(name string) models.NodeConfig {
	return models.NodeConfig{
		Name:    name,
		Backend: "ssh",
		Params: map[string]string{
			models.ParamHost:      name,
			models.ParamUser:      "logs",
			models.ParamRemoteDir: "/opt/app/log",
		},
	}
}

func fileGroup(name string, nodes ...string) models.GroupConfig {
	g := models.GroupConfig{
		Name:    name,
		Kind:    models.GroupKindFile,
		Sources: []models.Source{appSource},
	}
	for _, n := range nodes {
		g.Nodes = append(g.Nodes, shellNode(n))
	}
	return g
}
