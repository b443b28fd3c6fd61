package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/logging"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// SourceItem is the name and source identifier of a source.
type SourceItem struct {
	Name       string `json:"name"`
	SourceName string `json:"source_name"`
}

// NodeGroup fans operations out to its nodes and merges the results.
type NodeGroup struct {
	cfg        models.GroupConfig
	nodes      []*Node
	tracer     Tracer
	logger     *zap.Logger
	maxWorkers int
}

func (g *NodeGroup) Name() string               { return g.cfg.Name }
func (g *NodeGroup) Kind() models.GroupKind     { return g.cfg.Kind }
func (g *NodeGroup) Patterns() models.Patterns  { return g.cfg.Patterns }
func (g *NodeGroup) Sources() []models.Source   { return g.cfg.Sources }
func (g *NodeGroup) Nodes() []*Node             { return g.nodes }
func (g *NodeGroup) Config() models.GroupConfig { return g.cfg }

// NodeNames returns node names in declaration order.
func (g *NodeGroup) NodeNames() []string {
	names := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		names[i] = n.Name()
	}
	return names
}

// Node returns the first node with the given name, or nil.
func (g *NodeGroup) Node(name string) *Node {
	for _, n := range g.nodes {
		if n.Name() == name {
			return n
		}
	}
	return nil
}

// SourceItems lists the sources as (name, source identifier) pairs.
func (g *NodeGroup) SourceItems() []SourceItem {
	items := make([]SourceItem, len(g.cfg.Sources))
	for i, s := range g.cfg.Sources {
		items[i] = SourceItem{Name: s.Name, SourceName: s.SourceName}
	}
	return items
}

// Source returns the first source with the given name.
func (g *NodeGroup) Source(name string) (models.Source, error) {
	for _, s := range g.cfg.Sources {
		if s.Name == name {
			return s, nil
		}
	}
	return models.Source{}, fmt.Errorf("%w: %q in node group %q", apperrors.ErrUnknownSource, name, g.cfg.Name)
}

// Columns derives the column view of result lines using the group's column patterns.
func (g *NodeGroup) Columns(lines []string) Table {
	return ExtractColumns(g.cfg.Patterns.Columns, lines)
}

// ExecCmd runs cmd on every node and returns the concatenated output in node order.
func (g *NodeGroup) ExecCmd(ctx context.Context, sourceName, cmd string) ([]string, error) {
	src, err := g.Source(sourceName)
	if err != nil {
		return nil, err
	}

	lines, err := g.fanOut(ctx, "exec", func(ctx context.Context, n *Node) ([]string, error) {
		return n.ExecCmd(ctx, src, cmd)
	})
	if err != nil {
		return nil, err
	}

	g.completed(lines)
	return lines, nil
}

// Search runs the source template on every node. When the group sort pattern
// is active the merged result is stably sorted by the extracted key.
func (g *NodeGroup) Search(ctx context.Context, sourceName, searchStr, searchDate string) ([]string, error) {
	g.tracer.Trace(fmt.Sprintf("Search for '%s' in '%s' with date >= '%s'", searchStr, sourceName, searchDate), false)

	src, err := g.Source(sourceName)
	if err != nil {
		return nil, err
	}

	lines, err := g.fanOut(ctx, "search", func(ctx context.Context, n *Node) ([]string, error) {
		return n.Search(ctx, src, searchStr, searchDate)
	})
	if err != nil {
		return nil, err
	}

	lines = SortLines(lines, g.cfg.Patterns.Sort)
	g.completed(lines)
	return lines, nil
}

// cause strips the node wrapper of an execution error for trace messages.
func cause(err error) error {
	var execErr *apperrors.ExecutionError
	if errors.As(err, &execErr) && execErr.Err != nil {
		return execErr.Err
	}
	return err
}

func (g *NodeGroup) completed(lines []string) {
	g.tracer.Trace(fmt.Sprintf("Operation completed, %d line(s) found", len(lines)), false)
}

// fanOut runs op inside one connect/close cycle per node, at most maxWorkers
// nodes at a time. Results are concatenated in node declaration order.
// Unreachable nodes and execution failures contribute nothing. The context
// is checked before each node connects.
func (g *NodeGroup) fanOut(ctx context.Context, op string, fn func(context.Context, *Node) ([]string, error)) ([]string, error) {
	logger := g.logger.With(zap.String("operation", op), zap.String("operation_id", uuid.NewString()))
	results := make([][]string, len(g.nodes))

	var eg errgroup.Group
	eg.SetLimit(g.maxWorkers)
	for i, n := range g.nodes {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lines, connected, err := n.session(ctx, func() ([]string, error) {
				return fn(ctx, n)
			})
			if err != nil {
				logger.Warn("Node execution failed",
					zap.String("node", n.Name()),
					zap.String("error", logging.SanitizeError(err)))
				g.tracer.Trace(fmt.Sprintf("Execution on '%s' FAILED, [%s]", n.Name(), logging.SanitizeError(cause(err))), true)
				return nil
			}
			if connected {
				results[i] = lines
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []string
	contributed := 0
	for _, r := range results {
		if len(r) > 0 {
			contributed++
		}
		merged = append(merged, r...)
	}
	logger.Debug("Fan-out finished",
		zap.Int("nodes", len(g.nodes)),
		zap.Int("contributing_nodes", contributed),
		zap.Int("lines", len(merged)))
	return merged, nil
}
