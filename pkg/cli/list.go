package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
)

func newGroupsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List node groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(conn.Groups()))
			for i, g := range conn.Groups() {
				rows = append(rows, []string{
					strconv.Itoa(i),
					g.Name(),
					string(g.Kind()),
					strings.Join(g.NodeNames(), ","),
				})
			}
			return writeRows(cmd.OutOrStdout(), []string{"INDEX", "NAME", "KIND", "NODES"}, rows)
		},
	}
}

func newSourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sources <group>",
		Short: "List the sources of a node group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, idx, err := a.openGroup(cmd, args[0])
			if err != nil {
				return err
			}
			items, err := conn.SourceItems(idx)
			if err != nil {
				return err
			}
			rows := make([][]string, len(items))
			for i, it := range items {
				rows[i] = []string{it.Name, it.SourceName}
			}
			return writeRows(cmd.OutOrStdout(), []string{"NAME", "SOURCE"}, rows)
		},
	}
}

func newNodesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes <group>",
		Short: "List the nodes of a node group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, idx, err := a.openGroup(cmd, args[0])
			if err != nil {
				return err
			}
			g, err := conn.Group(idx)
			if err != nil {
				return err
			}
			rows := make([][]string, len(g.Nodes()))
			for i, n := range g.Nodes() {
				rows[i] = []string{n.Name(), n.Address(), n.Backend(), string(n.Kind())}
			}
			return writeRows(cmd.OutOrStdout(), []string{"NAME", "ADDRESS", "BACKEND", "KIND"}, rows)
		},
	}
}

func newBackendsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the backend types compiled into this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types := backend.NewFactory(a.logger).ListTypes()
			rows := make([][]string, len(types))
			for i, t := range types {
				rows[i] = []string{t.Type, string(t.Kind), t.DisplayName}
			}
			return writeRows(cmd.OutOrStdout(), []string{"TYPE", "KIND", "NAME"}, rows)
		},
	}
}
