package backend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
)

// Factory creates backend connections by type.
type Factory interface {
	// NewConn creates an unconnected Conn and reports its result kind.
	NewConn(backendType string) (Conn, Kind, error)

	// Kind reports the result kind of a backend type without creating a Conn.
	Kind(backendType string) (Kind, error)

	// ListTypes returns info for all available backend types.
	ListTypes() []BackendInfo
}

type registryFactory struct {
	logger *zap.Logger
}

// NewFactory returns a factory that uses the global registry.
func NewFactory(logger *zap.Logger) Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registryFactory{logger: logger}
}

func (f *registryFactory) NewConn(backendType string) (Conn, Kind, error) {
	return New(backendType, f.logger.Named(backendType))
}

func (f *registryFactory) Kind(backendType string) (Kind, error) {
	reg, ok := Lookup(backendType)
	if !ok {
		return "", fmt.Errorf("%w: %s (not compiled in)", apperrors.ErrUnsupportedBackend, backendType)
	}
	return reg.Info.Kind, nil
}

func (f *registryFactory) ListTypes() []BackendInfo {
	return RegisteredBackends()
}

// Ensure registryFactory implements Factory at compile time.
var _ Factory = (*registryFactory)(nil)
