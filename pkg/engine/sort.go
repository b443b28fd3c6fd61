package engine

import (
	"regexp"
	"slices"
	"strings"

	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// SortKey extracts the sort key of a line: the first capture group of the
// pattern, or the whole match when the pattern has no groups. Lines the
// pattern does not match, or whose group did not participate, key on the
// whole line.
func SortKey(re *regexp.Regexp, line string) string {
	m := re.FindStringSubmatchIndex(line)
	if m == nil {
		return line
	}
	if len(m) >= 4 {
		if m[2] < 0 {
			return line
		}
		return line[m[2]:m[3]]
	}
	return line[m[0]:m[1]]
}

// SortLines stably reorders lines by their sort key. Inactive patterns and
// empty input return lines unchanged.
func SortLines(lines []string, p models.SortPattern) []string {
	if !p.IsActive() || len(lines) == 0 {
		return lines
	}

	type keyed struct {
		key  string
		line string
	}
	items := make([]keyed, len(lines))
	for i, line := range lines {
		items[i] = keyed{key: SortKey(p.Regexp, line), line: line}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		return strings.Compare(a.key, b.key)
	})

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.line
	}
	return out
}
