// Package tools provides the cached data-retrieval tools the agent can
// invoke: projects, cases, runs and results, each a fingerprint-cached
// wrapper around the external QA API client.
package tools

import (
	"context"
	"sync"
)

// emitterKey uses an empty struct for a zero-allocation context key.
type emitterKey struct{}

// ToolEventEmitter receives tool lifecycle events. The interface is
// minimal - only the tool name crosses it; presentation is the caller's
// concern.
//
// Usage:
//  1. The agent creates an emitter bound to the request's callbacks.
//  2. The agent stores it in context via ContextWithEmitter.
//  3. Wrapped tools retrieve it via EmitterFromContext and fire
//     Start/Complete/Error around execution.
type ToolEventEmitter interface {
	// OnToolStart signals that a tool has started execution.
	OnToolStart(name string)

	// OnToolComplete signals that a tool completed successfully.
	OnToolComplete(name string)

	// OnToolError signals that a tool execution failed.
	OnToolError(name string)
}

// EmitterFromContext retrieves the ToolEventEmitter from ctx. Returns nil
// if not set, allowing graceful degradation (no events emitted).
func EmitterFromContext(ctx context.Context) ToolEventEmitter {
	emitter, _ := ctx.Value(emitterKey{}).(ToolEventEmitter)
	return emitter
}

// ContextWithEmitter stores a ToolEventEmitter in ctx for per-request
// binding.
func ContextWithEmitter(ctx context.Context, emitter ToolEventEmitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, emitter)
}

// EmitterFuncs adapts plain functions to the ToolEventEmitter interface.
// Nil fields are skipped.
type EmitterFuncs struct {
	Start    func(name string)
	Complete func(name string)
	Error    func(name string)
}

func (e EmitterFuncs) OnToolStart(name string) {
	if e.Start != nil {
		e.Start(name)
	}
}

func (e EmitterFuncs) OnToolComplete(name string) {
	if e.Complete != nil {
		e.Complete(name)
	}
}

func (e EmitterFuncs) OnToolError(name string) {
	if e.Error != nil {
		e.Error(name)
	}
}

// Recorder is a ToolEventEmitter that records tool names in invocation
// order (duplicates retained) and forwards each event to an optional next
// emitter.
//
// Recorder is safe for concurrent use by multiple goroutines.
type Recorder struct {
	mu   sync.Mutex
	used []string
	next ToolEventEmitter
}

// NewRecorder creates a Recorder forwarding to next (may be nil).
func NewRecorder(next ToolEventEmitter) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) OnToolStart(name string) {
	r.mu.Lock()
	r.used = append(r.used, name)
	r.mu.Unlock()

	if r.next != nil {
		r.next.OnToolStart(name)
	}
}

func (r *Recorder) OnToolComplete(name string) {
	if r.next != nil {
		r.next.OnToolComplete(name)
	}
}

func (r *Recorder) OnToolError(name string) {
	if r.next != nil {
		r.next.OnToolError(name)
	}
}

// Used returns the recorded tool names in invocation order.
func (r *Recorder) Used() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.used))
	copy(out, r.used)
	return out
}

var (
	_ ToolEventEmitter = EmitterFuncs{}
	_ ToolEventEmitter = (*Recorder)(nil)
)
