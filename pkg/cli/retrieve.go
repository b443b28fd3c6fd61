package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-logscope/pkg/markup"
)

func addOutputFlags(cmd *cobra.Command, o *lineOutput) {
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Write lines to a file instead of stdout (.gz and .zst are compressed)")
	cmd.Flags().BoolVar(&o.pretty, "pretty", false, "Indent lines that are XML documents")
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		date     string
		table    bool
		tag      string
		tagValue string
		output   lineOutput
	)

	cmd := &cobra.Command{
		Use:   "search <group> <source> <text>",
		Short: "Search a source on every node of a group",
		Long: `Search runs the source template with the search text and date on every
node of the group and prints the merged lines, sorted when the group has an
active sort pattern.

Examples:
  ekaya-logscope search 0 server "OutOfMemoryError" --date 2024-01-31
  ekaya-logscope search "Audit DB" events ERR --table
  ekaya-logscope search 0 server txn --tag correlationId --tag-value 8f2c --out txn.log.gz`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, idx, err := a.openGroup(cmd, args[0])
			if err != nil {
				return err
			}
			lines, err := conn.Search(cmd.Context(), idx, args[1], args[2], date)
			if err != nil {
				return err
			}
			if tag != "" {
				lines = markup.FilterByTag(lines, tag, tagValue)
			}
			if table {
				g, err := conn.Group(idx)
				if err != nil {
					return err
				}
				return writeTable(cmd.OutOrStdout(), g.Columns(lines))
			}
			return output.write(cmd.OutOrStdout(), cmd.ErrOrStderr(), lines)
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Only records on or after this date")
	cmd.Flags().BoolVar(&table, "table", false, "Print the column view defined by the group's column patterns")
	cmd.Flags().StringVar(&tag, "tag", "", "Keep only lines whose XML tag carries --tag-value")
	cmd.Flags().StringVar(&tagValue, "tag-value", "", "Value for --tag")
	addOutputFlags(cmd, &output)
	return cmd
}

func newExecCmd(a *app) *cobra.Command {
	var output lineOutput

	cmd := &cobra.Command{
		Use:   "exec <group> <source> <command>",
		Short: "Run a raw command or statement on every node of a group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, idx, err := a.openGroup(cmd, args[0])
			if err != nil {
				return err
			}
			lines, err := conn.ExecCmd(cmd.Context(), idx, args[1], args[2])
			if err != nil {
				return err
			}
			return output.write(cmd.OutOrStdout(), cmd.ErrOrStderr(), lines)
		},
	}
	addOutputFlags(cmd, &output)
	return cmd
}

func newFilePartCmd(a *app) *cobra.Command {
	var output lineOutput

	cmd := &cobra.Command{
		Use:   "file-part <group> <source> <file> <from> <to>",
		Short: "Print a line range of a log file from every node of a file group",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("invalid from line %q: %w", args[3], err)
			}
			to, err := strconv.Atoi(args[4])
			if err != nil {
				return fmt.Errorf("invalid to line %q: %w", args[4], err)
			}

			conn, idx, err := a.openGroup(cmd, args[0])
			if err != nil {
				return err
			}
			lines, err := conn.FilePart(cmd.Context(), idx, args[1], args[2], from, to)
			if err != nil {
				return err
			}
			return output.write(cmd.OutOrStdout(), cmd.ErrOrStderr(), lines)
		},
	}
	addOutputFlags(cmd, &output)
	return cmd
}

func newSearchExtCmd(a *app) *cobra.Command {
	var (
		date   string
		output lineOutput
	)

	cmd := &cobra.Command{
		Use:   "search-ext <group> <source> <text>",
		Short: "Search whole multi-line records in the files of a file group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, idx, err := a.openGroup(cmd, args[0])
			if err != nil {
				return err
			}
			lines, err := conn.SearchExtended(cmd.Context(), idx, args[1], args[2], date)
			if err != nil {
				return err
			}
			return output.write(cmd.OutOrStdout(), cmd.ErrOrStderr(), lines)
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Only files modified on or after this date (YYYY-MM-DD)")
	addOutputFlags(cmd, &output)
	return cmd
}
