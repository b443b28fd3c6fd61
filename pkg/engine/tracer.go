package engine

import (
	"sync"

	"go.uber.org/zap"
)

// Tracer receives user-visible progress messages: connects, closes,
// executed commands and operation completion.
type Tracer interface {
	Trace(message string, isError bool)
}

// TraceFunc adapts a function to the Tracer interface.
type TraceFunc func(message string, isError bool)

func (f TraceFunc) Trace(message string, isError bool) { f(message, isError) }

// serialTracer forwards to an optional Tracer one message at a time, so a
// caller-supplied sink never runs concurrently even when nodes are processed
// in parallel. Every message is also written to the logger.
type serialTracer struct {
	mu     sync.Mutex
	next   Tracer
	logger *zap.Logger
}

func newSerialTracer(next Tracer, logger *zap.Logger) *serialTracer {
	return &serialTracer{next: next, logger: logger}
}

func (t *serialTracer) Trace(message string, isError bool) {
	if isError {
		t.logger.Warn(message)
	} else {
		t.logger.Debug(message)
	}

	if t.next == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next.Trace(message, isError)
}
