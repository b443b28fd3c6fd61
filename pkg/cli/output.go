package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/ekaya-inc/ekaya-logscope/pkg/engine"
	"github.com/ekaya-inc/ekaya-logscope/pkg/export"
	"github.com/ekaya-inc/ekaya-logscope/pkg/markup"
)

// writerTracer prints traces one per line; errors are prefixed with "! ".
type writerTracer struct {
	mu sync.Mutex
	w  io.Writer
}

func newWriterTracer(w io.Writer) *writerTracer {
	return &writerTracer{w: w}
}

func (t *writerTracer) Trace(message string, isError bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if isError {
		fmt.Fprintf(t.w, "! %s\n", message)
		return
	}
	fmt.Fprintf(t.w, "  %s\n", message)
}

var _ engine.Tracer = (*writerTracer)(nil)

// lineOutput controls how a result is printed.
type lineOutput struct {
	out    string
	pretty bool
}

func (o lineOutput) write(stdout, stderr io.Writer, lines []string) error {
	if o.pretty {
		pretty := make([]string, len(lines))
		for i, l := range lines {
			pretty[i] = markup.IndentOrRaw(l)
		}
		lines = pretty
	}

	if o.out != "" {
		if err := export.WriteFile(o.out, lines); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "%d line(s) written to %s\n", len(lines), o.out)
		return nil
	}

	for _, l := range lines {
		if _, err := fmt.Fprintln(stdout, l); err != nil {
			return err
		}
	}
	return nil
}

// writeTable prints the column view with the raw line index first.
func writeTable(w io.Writer, t engine.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "#\t%s\n", strings.Join(t.Columns, "\t"))
	for _, r := range t.Rows {
		fmt.Fprintf(tw, "%d\t%s\n", r.Index, strings.Join(r.Values, "\t"))
	}
	return tw.Flush()
}

// writeRows prints tab-aligned rows under a header.
func writeRows(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}
