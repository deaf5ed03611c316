// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers can register
// hooks at startup to receive events about install transactions,
// dependency resolution, and record-store operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, plain logs)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetTransactionHooks(&myTxnHooks{})
//	    observability.SetResolveHooks(&myResolveHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Transaction().OnInstallStart(ctx, archivePath)
//	// ... run transaction ...
//	observability.Transaction().OnInstallComplete(ctx, id, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Transaction Hooks
// =============================================================================

// TransactionHooks receives events from install and uninstall transactions.
type TransactionHooks interface {
	// Install events
	OnInstallStart(ctx context.Context, archivePath string)
	OnInstallComplete(ctx context.Context, id string, duration time.Duration, err error)

	// Uninstall events
	OnUninstallStart(ctx context.Context, id string)
	OnUninstallComplete(ctx context.Context, id string, duration time.Duration, err error)

	// OnRollback records that a failed transaction was rolled back.
	OnRollback(ctx context.Context, id string, cause error)
}

// =============================================================================
// Resolve Hooks
// =============================================================================

// ResolveHooks receives events from dependency resolution.
type ResolveHooks interface {
	// OnResolveStart records the start of a resolution pass.
	OnResolveStart(ctx context.Context, modCount int)

	// OnResolveComplete records a finished resolution pass with its
	// finding counts.
	OnResolveComplete(ctx context.Context, modCount, missing, conflicts, cycles int, duration time.Duration)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from record-store operations.
type StoreHooks interface {
	// OnStoreRead records a read (list or get).
	OnStoreRead(ctx context.Context, op string)

	// OnStoreWrite records a write (put or delete).
	OnStoreWrite(ctx context.Context, op, id string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTransactionHooks is a no-op implementation of TransactionHooks.
type NoopTransactionHooks struct{}

func (NoopTransactionHooks) OnInstallStart(context.Context, string)                           {}
func (NoopTransactionHooks) OnInstallComplete(context.Context, string, time.Duration, error)  {}
func (NoopTransactionHooks) OnUninstallStart(context.Context, string)                         {}
func (NoopTransactionHooks) OnUninstallComplete(context.Context, string, time.Duration, error) {
}
func (NoopTransactionHooks) OnRollback(context.Context, string, error) {}

// NoopResolveHooks is a no-op implementation of ResolveHooks.
type NoopResolveHooks struct{}

func (NoopResolveHooks) OnResolveStart(context.Context, int) {}
func (NoopResolveHooks) OnResolveComplete(context.Context, int, int, int, int, time.Duration) {
}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreRead(context.Context, string)          {}
func (NoopStoreHooks) OnStoreWrite(context.Context, string, string) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	transactionHooks TransactionHooks = NoopTransactionHooks{}
	resolveHooks     ResolveHooks     = NoopResolveHooks{}
	storeHooks       StoreHooks       = NoopStoreHooks{}
	hooksMu          sync.RWMutex
)

// SetTransactionHooks registers custom transaction hooks.
// This should be called once at application startup before any mutations.
func SetTransactionHooks(h TransactionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		transactionHooks = h
	}
}

// SetResolveHooks registers custom resolution hooks.
func SetResolveHooks(h ResolveHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolveHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Transaction returns the registered transaction hooks.
func Transaction() TransactionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return transactionHooks
}

// Resolve returns the registered resolution hooks.
func Resolve() ResolveHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolveHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	transactionHooks = NoopTransactionHooks{}
	resolveHooks = NoopResolveHooks{}
	storeHooks = NoopStoreHooks{}
}
