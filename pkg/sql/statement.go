// Package sql provides checks for statements built from query source templates.
package sql

import (
	"errors"
	"strings"
)

// ErrMultipleStatements indicates the statement contains more than one SQL statement.
var ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

// NormalizeStatement trims the statement and strips one trailing semicolon.
// Several drivers (Oracle in particular) reject a terminating semicolon.
// Any semicolon left outside string literals means multiple statements.
func NormalizeStatement(stmt string) (string, error) {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return stmt, nil
	}

	if strings.HasSuffix(stmt, ";") {
		stmt = strings.TrimRight(strings.TrimSuffix(stmt, ";"), " \t\n\r")
	}

	if hasSemicolonOutsideStrings(stmt) {
		return "", ErrMultipleStatements
	}
	return stmt, nil
}

// hasSemicolonOutsideStrings scans for ';' outside quoted literals and comments.
// Both backslash (\') and doubled ('') quote escapes are handled. Line comments
// run from "--" to the end of the line; block comments from "/*" to "*/".
func hasSemicolonOutsideStrings(stmt string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	prev := byte(0)

	for i := 0; i < len(stmt); i++ {
		ch := stmt[i]
		var next byte
		if i+1 < len(stmt) {
			next = stmt[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case ch == ';':
				return true
			case ch == '\'':
				state = stateSingleQuote
			case ch == '"':
				state = stateDoubleQuote
			case ch == '-' && next == '-':
				state = stateLineComment
				i++
			case ch == '/' && next == '*':
				state = stateBlockComment
				i++
			}
		case stateSingleQuote:
			// A doubled quote exits and immediately re-enters the literal.
			if ch == '\'' && prev != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if ch == '"' && prev != '\\' {
				state = stateNormal
			}
		case stateLineComment:
			if ch == '\n' {
				state = stateNormal
			}
		case stateBlockComment:
			if ch == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
		prev = ch
	}
	return false
}
