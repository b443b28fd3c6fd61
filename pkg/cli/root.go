// Package cli implements the ekaya-logscope command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/audit"
	"github.com/ekaya-inc/ekaya-logscope/pkg/config"
	"github.com/ekaya-inc/ekaya-logscope/pkg/crypto"
	"github.com/ekaya-inc/ekaya-logscope/pkg/engine"
	"github.com/ekaya-inc/ekaya-logscope/pkg/logging"
)

// app holds state shared by all commands of one invocation.
type app struct {
	version      string
	configPath   string
	topologyPath string
	quiet        bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   "ekaya-logscope",
		Short: "Federated log retrieval across SSH hosts and databases",
		Long: `ekaya-logscope searches logs spread over groups of nodes. A node is a host
reached over SSH or a database; a node group shares sources (command or query
templates) and patterns that sort and tabulate the merged result.

The topology of groups, nodes and sources is read from an XML, YAML or TOML
document (--topology, or topology_path in the config file).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetVersionTemplate("ekaya-logscope version {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to the config file (default "+config.DefaultPath+")")
	flags.StringVar(&a.topologyPath, "topology", "", "Topology document; overrides topology_path")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Do not print progress traces")

	root.AddCommand(
		newGroupsCmd(a),
		newSourcesCmd(a),
		newNodesCmd(a),
		newBackendsCmd(a),
		newSealCmd(a),
		newSearchCmd(a),
		newExecCmd(a),
		newFilePartCmd(a),
		newSearchExtCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath, a.version)
	if err != nil {
		return err
	}
	if a.topologyPath != "" {
		cfg.TopologyPath = a.topologyPath
	}

	logger, err := logging.NewLogger(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// open loads the topology. Traces go to w unless quiet is set; a nil w
// leaves them to the logger only.
func (a *app) open(w io.Writer) (*engine.Connection, error) {
	opts := []engine.Option{
		engine.WithLogger(a.logger.Named("engine")),
		engine.WithMaxWorkers(a.cfg.Fanout.MaxWorkers),
		engine.WithNodeOptions(engine.NodeOptions{
			DefaultParams:         a.cfg.SSH.NodeParams(),
			ConnectRetries:        a.cfg.Fanout.ConnectRetries,
			BlockSuspiciousSearch: a.cfg.Query.BlockSuspiciousSearch,
			Auditor:               audit.NewSecurityAuditor(a.logger),
		}),
	}
	if w != nil && !a.quiet {
		opts = append(opts, engine.WithTracer(newWriterTracer(w)))
	}
	if a.cfg.SecretKey != "" {
		sealer, err := crypto.NewSealer(a.cfg.SecretKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithUnsealer(sealer))
	}
	return engine.Open(a.cfg.TopologyPath, opts...)
}

// openGroup loads the topology and resolves a group given by index or name.
func (a *app) openGroup(cmd *cobra.Command, ref string) (*engine.Connection, int, error) {
	conn, err := a.open(cmd.ErrOrStderr())
	if err != nil {
		return nil, -1, err
	}
	idx, err := conn.ResolveGroup(ref)
	if err != nil {
		return nil, -1, err
	}
	return conn, idx, nil
}
