package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSource        = errors.New("unknown source")
	ErrUnknownGroup         = errors.New("unknown node group")
	ErrGroupIndexOutOfRange = errors.New("node group index out of range")
	ErrNotConnected         = errors.New("not connected")
	ErrUnsupportedBackend   = errors.New("unsupported backend")
	ErrUnsupportedGroupKind = errors.New("operation not supported for node group kind")
	ErrSuspiciousSearch     = errors.New("search text looks like SQL injection")
)

// ConfigErrorKind classifies topology configuration failures.
type ConfigErrorKind string

const (
	MissingElement   ConfigErrorKind = "missing-element"
	MissingAttribute ConfigErrorKind = "missing-attribute"
	InvalidValue     ConfigErrorKind = "invalid-value"
)

// ConfigError reports a missing or malformed element of a topology document.
// Path is the element path inside the document, Name the missing tag or attribute.
type ConfigError struct {
	File string
	Path string
	Kind ConfigErrorKind
	Name string
	Err  error
}

func (e *ConfigError) Error() string {
	switch e.Kind {
	case MissingElement:
		return fmt.Sprintf("Missing configuration parameter, file: '%s', path: '%s', tag: '%s'", e.File, e.Path, e.Name)
	case MissingAttribute:
		return fmt.Sprintf("Missing configuration attribute, file: '%s', path: '%s', attribute: '%s'", e.File, e.Path, e.Name)
	default:
		if e.Err != nil {
			return fmt.Sprintf("Invalid configuration value, file: '%s', path: '%s', name: '%s': %v", e.File, e.Path, e.Name, e.Err)
		}
		return fmt.Sprintf("Invalid configuration value, file: '%s', path: '%s', name: '%s'", e.File, e.Path, e.Name)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConnectionError wraps a transport or authentication failure on connect.
type ConnectionError struct {
	Node    string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s (%s): %v", e.Node, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ExecutionError wraps a command or query failure on an open connection.
type ExecutionError struct {
	Node    string
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute on %s: %v", e.Node, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
