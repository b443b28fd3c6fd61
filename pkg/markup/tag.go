package markup

import (
	"regexp"
	"sync"
)

var (
	tagPatternsMu sync.Mutex
	tagPatterns   = map[string]*regexp.Regexp{}
)

func tagPattern(tag string) *regexp.Regexp {
	tagPatternsMu.Lock()
	defer tagPatternsMu.Unlock()

	re, ok := tagPatterns[tag]
	if !ok {
		q := regexp.QuoteMeta(tag)
		re = regexp.MustCompile(`<(?:[\w.-]+:)?` + q + `(?:\s[^>]*)?>(.+?)</(?:[\w.-]+:)?` + q + `>`)
		tagPatterns[tag] = re
	}
	return re
}

// TagValue returns the text of the first element named tag in text,
// with or without a namespace prefix. Returns "" when there is none.
func TagValue(text, tag string) string {
	m := tagPattern(tag).FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// FilterByTag keeps the lines whose tag value equals value.
// An empty value matches nothing.
func FilterByTag(lines []string, tag, value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, line := range lines {
		if TagValue(line, tag) == value {
			out = append(out, line)
		}
	}
	return out
}
