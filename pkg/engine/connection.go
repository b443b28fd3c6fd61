// Package engine implements federated retrieval over node groups: nodes are
// connected, the command or search template is executed on each, and the
// normalized results are merged and optionally sorted.
package engine

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/audit"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
	"github.com/ekaya-inc/ekaya-logscope/pkg/topology"
)

// Connection is the root of a loaded topology: an ordered list of node groups.
type Connection struct {
	origin  string
	groups  []*NodeGroup
	tracer  Tracer
	logger  *zap.Logger
	auditor *audit.SecurityAuditor
}

// Open loads the topology document at path and builds a Connection.
// Loading failures are reported to the tracer and returned.
func Open(path string, opts ...Option) (*Connection, error) {
	o := buildOptions(opts)
	tracer := newSerialTracer(o.tracer, o.logger.Named("trace"))

	var topoOpts []topology.Option
	if o.unsealer != nil {
		topoOpts = append(topoOpts, topology.WithUnsealer(o.unsealer))
	}
	topo, err := topology.Load(path, topoOpts...)
	if err != nil {
		tracer.Trace(fmt.Sprintf("Configuration loading error, file: '%s', %v", path, err), true)
		return nil, err
	}
	return newConnection(topo, o, tracer)
}

// New builds a Connection from an already loaded topology.
func New(topo *models.Topology, opts ...Option) (*Connection, error) {
	o := buildOptions(opts)
	return newConnection(topo, o, newSerialTracer(o.tracer, o.logger.Named("trace")))
}

func newConnection(topo *models.Topology, o options, tracer *serialTracer) (*Connection, error) {
	c := &Connection{
		origin:  topo.Origin,
		groups:  make([]*NodeGroup, 0, len(topo.Groups)),
		tracer:  tracer,
		logger:  o.logger,
		auditor: o.node.Auditor,
	}

	for _, gc := range topo.Groups {
		groupLogger := o.logger.Named("group").With(zap.String("group", gc.Name))
		g := &NodeGroup{
			cfg:        gc,
			nodes:      make([]*Node, 0, len(gc.Nodes)),
			tracer:     tracer,
			logger:     groupLogger,
			maxWorkers: o.maxWorkers,
		}
		for _, nc := range gc.Nodes {
			n, err := newNode(nc, o.factory, o.node, tracer, groupLogger)
			if err != nil {
				return nil, fmt.Errorf("node group %s: %w", gc.Name, err)
			}
			g.nodes = append(g.nodes, n)
		}
		c.groups = append(c.groups, g)
	}

	o.logger.Info("Topology loaded",
		zap.String("origin", topo.Origin),
		zap.Int("groups", len(c.groups)),
		zap.Int("max_workers", o.maxWorkers))
	return c, nil
}

// Origin is the file the topology was loaded from, if any.
func (c *Connection) Origin() string { return c.origin }

// Groups returns the node groups in declaration order.
func (c *Connection) Groups() []*NodeGroup { return c.groups }

// GroupNames returns node group names in declaration order.
func (c *Connection) GroupNames() []string {
	names := make([]string, len(c.groups))
	for i, g := range c.groups {
		names[i] = g.Name()
	}
	return names
}

// GroupByName returns the node group with the given name. When several groups
// share a name the last one wins. Returns nil when there is none.
func (c *Connection) GroupByName(name string) *NodeGroup {
	var found *NodeGroup
	for _, g := range c.groups {
		if g.Name() == name {
			found = g
		}
	}
	return found
}

// GroupIndex returns the index GroupByName resolves to, or -1.
func (c *Connection) GroupIndex(name string) int {
	idx := -1
	for i, g := range c.groups {
		if g.Name() == name {
			idx = i
		}
	}
	return idx
}

// ResolveGroup turns a group reference into an index. A reference that parses
// as a number is an index; anything else is looked up by name.
func (c *Connection) ResolveGroup(ref string) (int, error) {
	if idx, err := strconv.Atoi(ref); err == nil {
		if _, err := c.Group(idx); err != nil {
			return -1, err
		}
		return idx, nil
	}
	if idx := c.GroupIndex(ref); idx >= 0 {
		return idx, nil
	}
	return -1, fmt.Errorf("%w: %q", apperrors.ErrUnknownGroup, ref)
}

// Group returns the node group at index.
func (c *Connection) Group(index int) (*NodeGroup, error) {
	if index < 0 || index >= len(c.groups) {
		return nil, fmt.Errorf("%w: %d (have %d)", apperrors.ErrGroupIndexOutOfRange, index, len(c.groups))
	}
	return c.groups[index], nil
}

// SourceItems lists the sources of the node group at index.
func (c *Connection) SourceItems(index int) ([]SourceItem, error) {
	g, err := c.Group(index)
	if err != nil {
		return nil, err
	}
	return g.SourceItems(), nil
}

// Search runs a source search on the node group at index.
func (c *Connection) Search(ctx context.Context, index int, sourceName, searchStr, searchDate string) ([]string, error) {
	g, err := c.Group(index)
	if err != nil {
		return nil, err
	}
	return g.Search(ctx, sourceName, searchStr, searchDate)
}

// ExecCmd runs a raw command on the node group at index.
func (c *Connection) ExecCmd(ctx context.Context, index int, sourceName, cmd string) ([]string, error) {
	g, err := c.Group(index)
	if err != nil {
		return nil, err
	}
	c.auditor.LogRawCommand(ctx, g.Name(), sourceName, cmd)
	return g.ExecCmd(ctx, sourceName, cmd)
}

// FilePart returns lines from..to of fileName on every node of a file group.
func (c *Connection) FilePart(ctx context.Context, index int, sourceName, fileName string, from, to int) ([]string, error) {
	g, err := c.fileGroup(index)
	if err != nil {
		return nil, err
	}
	if from <= 0 {
		from = 0
	}
	c.tracer.Trace(fmt.Sprintf("Get lines from %d to %d from file '%s'", from, to, fileName), false)
	return g.ExecCmd(ctx, sourceName, FilePartCmd(fileName, from, to))
}

// SearchExtended searches whole multi-line records in the files matching the
// source's file mask on every node of a file group.
func (c *Connection) SearchExtended(ctx context.Context, index int, sourceName, searchStr, searchDate string) ([]string, error) {
	g, err := c.fileGroup(index)
	if err != nil {
		return nil, err
	}
	src, err := g.Source(sourceName)
	if err != nil {
		return nil, err
	}
	c.tracer.Trace(fmt.Sprintf("Extended search for '%s' in files '%s' with date >= '%s'", searchStr, src.SourceName, searchDate), false)
	return g.ExecCmd(ctx, sourceName, SearchExtendedCmd(src.SourceName, searchStr, searchDate))
}

func (c *Connection) fileGroup(index int) (*NodeGroup, error) {
	g, err := c.Group(index)
	if err != nil {
		return nil, err
	}
	if g.Kind() != models.GroupKindFile {
		return nil, fmt.Errorf("%w: %s group %q", apperrors.ErrUnsupportedGroupKind, g.Kind(), g.Name())
	}
	return g, nil
}
