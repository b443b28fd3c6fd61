package tools

import (
	"regexp"
)

// RedactedText replaces secret values.
const RedactedText = "[REDACTED]"

// sensitiveKeys are the key names whose values count as secrets.
const sensitiveKeys = `api[_-]?key|api[_-]?secret|password|passwd|pwd|secret|token|credential|private[_-]?key|access[_-]?token|auth[_-]?token|bearer[_-]?token|client[_-]?secret`

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// SensitiveDetector identifies and redacts secrets in log lines: JSON members,
// key=value pairs, XML elements and bearer tokens.
type SensitiveDetector struct {
	redactions []redaction
}

func defaultRedactions() []redaction {
	return []redaction{
		// "password": "value"
		{regexp.MustCompile(`(?i)("(?:` + sensitiveKeys + `)"\s*:\s*)"[^"]*"`), `${1}"` + RedactedText + `"`},
		// <password>value</password>, with or without namespace prefix
		{regexp.MustCompile(`(?i)(<(?:[\w.-]+:)?(?:` + sensitiveKeys + `)(?:\s[^>]*)?>)[^<]*(</)`), `${1}` + RedactedText + `${2}`},
		// password=value, token: value
		{regexp.MustCompile(`(?i)\b((?:` + sensitiveKeys + `)\s*[=:]\s*)([^\s"'&;,<]+)`), `${1}` + RedactedText},
		// Authorization: Bearer value
		{regexp.MustCompile(`(?i)(\bbearer\s+)[A-Za-z0-9._~+/=-]+`), `${1}` + RedactedText},
	}
}

// NewSensitiveDetector creates a new detector with default patterns.
func NewSensitiveDetector() *SensitiveDetector {
	return &SensitiveDetector{redactions: defaultRedactions()}
}

// IsSensitiveContent reports whether content contains a secret value.
func (d *SensitiveDetector) IsSensitiveContent(content string) bool {
	for _, r := range d.redactions {
		if r.pattern.MatchString(content) {
			return true
		}
	}
	return false
}

// RedactContent replaces secret values in content with RedactedText and keeps
// the surrounding key or element.
func (d *SensitiveDetector) RedactContent(content string) string {
	if content == "" {
		return content
	}
	for _, r := range d.redactions {
		content = r.pattern.ReplaceAllString(content, r.replacement)
	}
	return content
}

// RedactLines redacts every line. The input slice is not modified.
func (d *SensitiveDetector) RedactLines(lines []string) []string {
	if lines == nil {
		return nil
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = d.RedactContent(l)
	}
	return out
}

// DefaultSensitiveDetector is a detector with the default patterns.
var DefaultSensitiveDetector = NewSensitiveDetector()
