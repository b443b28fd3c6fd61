package logging

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// MaxCommandLogLength is the maximum length of a command or query to log
	MaxCommandLogLength = 160
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// user:pass@host in URL-style DSNs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s?]+`)

	// Oracle easy-connect credentials: user/pass@host
	slashCredPattern = regexp.MustCompile(`\b([A-Za-z0-9_$#]+)/[^@\s/]+@`)

	// sshpass -p secret style command line passwords
	cmdPasswordPattern = regexp.MustCompile(`(\s-p\s+)\S+`)
)

// sensitiveParams are node parameter keys whose values are never logged.
var sensitiveParams = map[string]bool{
	"password":     true,
	"key_password": true,
	"pwd":          true,
}

// SanitizeConnectionString removes credentials from a DSN or connection URL.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return slashCredPattern.ReplaceAllString(sanitized, "${1}/"+RedactedText+"@")
}

// SanitizeError sanitizes error messages that might contain credentials.
// Use this before logging or tracing any error from a backend.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeConnectionString(err.Error())
}

// SanitizeCommand truncates a shell command or SQL statement for logging
// and removes inline passwords.
func SanitizeCommand(cmd string) string {
	if cmd == "" {
		return ""
	}
	sanitized := strings.ReplaceAll(cmd, "\n", "; ")
	sanitized = TruncateString(sanitized, MaxCommandLogLength)
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	return cmdPasswordPattern.ReplaceAllString(sanitized, "${1}"+RedactedText)
}

// SanitizeParams renders node parameters as "k=v" pairs with secrets redacted.
func SanitizeParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		v := params[k]
		if sensitiveParams[k] {
			v = RedactedText
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
