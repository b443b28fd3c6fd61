package engine

import (
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/topology"
)

// DefaultMaxWorkers bounds concurrent node operations when no option is given.
const DefaultMaxWorkers = 4

type options struct {
	tracer     Tracer
	logger     *zap.Logger
	maxWorkers int
	factory    backend.Factory
	node       NodeOptions
	unsealer   topology.Unsealer
}

// Option configures a Connection.
type Option func(*options)

// WithTracer sets the user-visible trace sink.
func WithTracer(t Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMaxWorkers bounds how many nodes of a group are processed at once.
// 1 processes nodes strictly one after another.
func WithMaxWorkers(n int) Option {
	return func(o *options) { o.maxWorkers = n }
}

// WithBackendFactory replaces the registry-backed connection factory.
func WithBackendFactory(f backend.Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithNodeOptions sets options applied to every node.
func WithNodeOptions(n NodeOptions) Option {
	return func(o *options) { o.node = n }
}

// WithUnsealer decrypts sealed secrets when Open loads a topology document.
func WithUnsealer(u topology.Unsealer) Option {
	return func(o *options) { o.unsealer = u }
}

func buildOptions(opts []Option) options {
	o := options{maxWorkers: DefaultMaxWorkers}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.maxWorkers < 1 {
		o.maxWorkers = 1
	}
	if o.factory == nil {
		o.factory = backend.NewFactory(o.logger.Named("backend"))
	}
	return o
}
