package engine

import (
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// Row is one tabular view row derived from a result line.
type Row struct {
	Index  int      `json:"index"` // position of the line in the raw result
	Values []string `json:"values"`
}

// Table is the column view of a result.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ExtractColumns applies the column patterns to every line. A column value is
// the first capture group (or the whole match); unmatched columns are empty.
// Lines where the primary column does not match are left out.
func ExtractColumns(columns []models.ColumnPattern, lines []string) Table {
	t := Table{Columns: make([]string, len(columns)), Rows: []Row{}}
	primary := -1
	for i, c := range columns {
		t.Columns[i] = c.Name
		if c.Primary && primary < 0 {
			primary = i
		}
	}
	if len(columns) == 0 {
		return t
	}

	for idx, line := range lines {
		values := make([]string, len(columns))
		matched := make([]bool, len(columns))
		for i, c := range columns {
			if c.Regexp == nil {
				continue
			}
			m := c.Regexp.FindStringSubmatchIndex(line)
			if m == nil {
				continue
			}
			matched[i] = true
			switch {
			case len(m) >= 4 && m[2] >= 0:
				values[i] = line[m[2]:m[3]]
			case len(m) >= 4:
				values[i] = ""
			default:
				values[i] = line[m[0]:m[1]]
			}
		}
		if primary >= 0 && !matched[primary] {
			continue
		}
		t.Rows = append(t.Rows, Row{Index: idx, Values: values})
	}
	return t
}
