package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes search text that libinjection flagged.
type InjectionCheckResult struct {
	Fingerprint string // libinjection fingerprint of the detected pattern
	Value       string
}

// CheckSearchText reports whether text substituted into a query template
// looks like SQL injection. Returns nil for clean text.
//
// Example:
//
//	CheckSearchText("timeout")               // nil
//	CheckSearchText("x' OR '1'='1")          // &InjectionCheckResult{Fingerprint: "s&sos", ...}
func CheckSearchText(text string) *InjectionCheckResult {
	if text == "" {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(text)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		Fingerprint: string(fingerprint),
		Value:       text,
	}
}
