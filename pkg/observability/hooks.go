// Package observability provides hooks for reporting workflow outcomes.
//
// The core packages never print or log. Everything a user should hear
// about, such as "Added a new task node to the workflow" or a rejected
// config form, is reported to a [Notifier], which presentation layers
// implement as toasts, log lines or status messages.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Provide a log-backed implementation for the CLI and server
//
// A Notifier is handed to each session explicitly. HTTP hooks describe the
// local API server's traffic and are registered once at startup:
//
//	observability.SetHTTPHooks(observability.NewLogHTTPHooks(logger))
//
// Notifiers are pure sinks; they must not call back into the session that
// notifies them.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Workflow Notifier
// =============================================================================

// Notifier receives the outcome of workflow operations.
type Notifier interface {
	// Graph edits
	NodeAdded(ctx context.Context, id, kind string)
	NodeDeleted(ctx context.Context, id string)
	EdgeAdded(ctx context.Context, id, source, target string)
	SelectionDeleted(ctx context.Context, nodes, edges int)

	// Config form
	ValidationFailed(ctx context.Context, id string, fields []string)

	// Import and export
	Imported(ctx context.Context, nodes, edges int)
	ImportFailed(ctx context.Context, err error)
	Exported(ctx context.Context, nodes, edges int)

	// HistoryChanged fires after undo, redo and every recorded edit.
	HistoryChanged(ctx context.Context, canUndo, canRedo bool)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the local API server.
type HTTPHooks interface {
	// OnRequest records an incoming HTTP request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records a completed HTTP response.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// Nop is a no-op implementation of Notifier.
type Nop struct{}

func (Nop) NodeAdded(context.Context, string, string)          {}
func (Nop) NodeDeleted(context.Context, string)                {}
func (Nop) EdgeAdded(context.Context, string, string, string)  {}
func (Nop) SelectionDeleted(context.Context, int, int)         {}
func (Nop) ValidationFailed(context.Context, string, []string) {}
func (Nop) Imported(context.Context, int, int)                 {}
func (Nop) ImportFailed(context.Context, error)                {}
func (Nop) Exported(context.Context, int, int)                 {}
func (Nop) HistoryChanged(context.Context, bool, bool)         {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	httpHooks HTTPHooks = NoopHTTPHooks{}
	hooksMu   sync.RWMutex
)

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before serving.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	httpHooks = NoopHTTPHooks{}
}
