package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/markup"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
	"github.com/ekaya-inc/ekaya-logscope/pkg/sql"
)

// RowSeparator terminates every formatted query row.
const RowSeparator = "\n--------------------------------------\n"

// dialect holds the backend-specific halves of node execution: how a command
// is prepared before it is sent and how the raw result becomes lines.
type dialect interface {
	prepareIn(src models.Source, cmd string) (string, error)
	prepareOut(res *backend.Result, src models.Source) []string
}

func newDialect(kind backend.Kind, params backend.Params) dialect {
	if kind == backend.KindQuery {
		return queryDialect{}
	}
	return shellDialect{remoteDir: params.Get(models.ParamRemoteDir)}
}

// shellDialect runs commands from the node's remote working directory.
type shellDialect struct {
	remoteDir string
}

func (d shellDialect) prepareIn(_ models.Source, cmd string) (string, error) {
	if d.remoteDir == "" {
		return cmd, nil
	}
	return "cd " + d.remoteDir + "\n" + cmd, nil
}

func (d shellDialect) prepareOut(res *backend.Result, _ models.Source) []string {
	if res.Empty() {
		return nil
	}
	return append([]string(nil), res.Lines...)
}

// queryDialect sends one statement and renders each row as one line.
type queryDialect struct{}

func (queryDialect) prepareIn(_ models.Source, cmd string) (string, error) {
	return sql.NormalizeStatement(cmd)
}

func (queryDialect) prepareOut(res *backend.Result, src models.Source) []string {
	if res.Empty() {
		return nil
	}
	lines := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		lines = append(lines, FormatRow(row, res.Columns, src.Fields))
	}
	return lines
}

// FormatRow renders a query row as name:'value' pairs. Markup fields are
// pretty-printed on their own lines. Columns beyond the declared fields are
// named after the backend column.
func FormatRow(row []any, columns []string, fields []models.OutField) string {
	var b strings.Builder
	for i, v := range row {
		field := fieldAt(i, columns, fields)
		value := FormatValue(v)
		if field.IsMarkup {
			b.WriteString("\n" + field.Name + ":\n" + markup.IndentOrRaw(value) + "\n")
		} else {
			b.WriteString(field.Name + ":'" + value + "' ")
		}
	}
	b.WriteString(RowSeparator)
	return b.String()
}

func fieldAt(i int, columns []string, fields []models.OutField) models.OutField {
	switch {
	case i < len(fields):
		return fields[i]
	case i < len(columns):
		return models.OutField{Name: columns[i]}
	default:
		return models.OutField{Name: fmt.Sprintf("col%d", i+1)}
	}
}

// FormatValue renders a scalar column value.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.DateTime)
	default:
		return fmt.Sprint(x)
	}
}
