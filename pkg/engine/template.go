package engine

import (
	"strings"

	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// Placeholders recognized in source templates. Any other {{...}} token is
// left as written.
const (
	PlaceholderSourceName = "{{source_name}}"
	PlaceholderSearchStr  = "{{search_str}}"
	PlaceholderSearchDate = "{{search_date}}"
)

// PrepareSearchCmd substitutes the placeholders of the source template in a
// single pass. Substituted values are never rescanned, so a search string that
// itself contains a placeholder is inserted verbatim.
func PrepareSearchCmd(src models.Source, searchStr, searchDate string) string {
	return strings.NewReplacer(
		PlaceholderSourceName, src.SourceName,
		PlaceholderSearchStr, searchStr,
		PlaceholderSearchDate, searchDate,
	).Replace(src.Template)
}
