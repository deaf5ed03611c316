// Package store persists the canonical mod record set.
//
// The contract is a record-per-mod store keyed by canonical id. Two
// backends ship:
//   - file: one JSON document per mod in a state directory, atomically
//     replaced on write. The default for a single-user CLI.
//   - sqlite: a single-table database for setups that want one state
//     file and transactional writes.
//
// The separate load-order artifact (one id per line) is written by
// WriteLoadOrder and must stay consistent with the last successful
// resolution's topological order; the repository rewrites it after every
// successful mutation.
package store

import (
	"github.com/modfort/modfort/pkg/mod"
)

// Store is a record-per-mod persistence backend keyed by canonical id.
// Implementations must treat ids case-insensitively by canonicalizing on
// every operation.
type Store interface {
	// List returns all records in unspecified order.
	List() ([]*mod.Record, error)
	// Get returns the record for id, or (nil, nil) when absent.
	Get(id string) (*mod.Record, error)
	// Put inserts or replaces the record under its canonical id.
	Put(r *mod.Record) error
	// Delete removes the record for id. Deleting an absent id is a no-op.
	Delete(id string) error
	// Close releases the backend.
	Close() error
}
