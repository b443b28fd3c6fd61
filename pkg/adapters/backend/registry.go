package backend

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
)

// BackendInfo describes a registered backend.
type BackendInfo struct {
	Type        string `json:"type"`         // "ssh", "postgres", "sqlserver", "oracle", "sqlite"
	DisplayName string `json:"display_name"` // "SSH shell", "PostgreSQL"
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
}

// BackendRegistration contains info + the constructor for new connections.
type BackendRegistration struct {
	Info BackendInfo
	New  func(logger *zap.Logger) Conn
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]BackendRegistration)
)

// Register is called by each backend's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg BackendRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredBackends returns info for all registered backends, ordered by type.
func RegisteredBackends() []BackendInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]BackendInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// Lookup returns the registration for a backend type.
func Lookup(backendType string) (BackendRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[backendType]
	return reg, ok
}

// IsRegistered checks if a backend type is available.
func IsRegistered(backendType string) bool {
	_, ok := Lookup(backendType)
	return ok
}

// New creates an unconnected Conn of the given type.
func New(backendType string, logger *zap.Logger) (Conn, Kind, error) {
	reg, ok := Lookup(backendType)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s (not compiled in)", apperrors.ErrUnsupportedBackend, backendType)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return reg.New(logger), reg.Info.Kind, nil
}
