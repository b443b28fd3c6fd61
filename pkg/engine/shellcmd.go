package engine

import (
	"fmt"
	"strings"
)

// RecordTimestampPattern marks the first line of a multi-line log record.
const RecordTimestampPattern = `[0-9]{4}-[0-9]{2}-[0-9]{2} [0-9]{2}:[0-9]{2}:[0-9]{2},[0-9]{3}`

// FilePartCmd prints lines from..to of a remote file, each prefixed with
// "FILENAME:FNR:". A from below zero is clamped to zero.
func FilePartCmd(fileName string, from, to int) string {
	if from <= 0 {
		from = 0
	}
	return fmt.Sprintf(`awk '(NR >= %d) && (NR <= %d) {print FILENAME ":" FNR ":" $0}' %s `,
		from, to, singleQuote(fileName))
}

// SearchExtendedCmd searches whole multi-line records in the files matching
// mask in the working directory. Files older than searchDate are skipped when
// it is set. Empty lines are dropped, records are split at timestamps and
// only records matching searchStr are printed.
func SearchExtendedCmd(mask, searchStr, searchDate string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `find . -maxdepth 1 -type f -name %s `, doubleQuote(mask))
	if searchDate != "" {
		fmt.Fprintf(&b, `-newermt %s `, doubleQuote(searchDate))
	}
	b.WriteString(`-exec cat {} /dev/null \; | `)
	b.WriteString(`awk 'NF' | `)
	b.WriteString(`sed -E 's/^` + RecordTimestampPattern + `/\n\n&/' | `)
	fmt.Fprintf(&b, `awk 'BEGIN { RS = "\n\n"; ORS=""} /%s/ {print}' `, awkPattern(searchStr))
	return b.String()
}

// singleQuote quotes s for a POSIX shell.
func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

// doubleQuote quotes s for a POSIX shell, leaving glob characters literal to
// the receiving command.
func doubleQuote(s string) string {
	return `"` + doubleQuoteEscaper.Replace(s) + `"`
}

var awkPatternEscaper = strings.NewReplacer("/", `\/`, "'", `'\''`)

// awkPattern makes s usable between the slashes of an awk regex inside a
// single-quoted program.
func awkPattern(s string) string {
	return awkPatternEscaper.Replace(s)
}
