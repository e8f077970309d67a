// Package store holds the canonical binding- and separation-energy tables
// every downstream component reads.
//
// The store is a set of multi-maps, one per nuclide.Quantity, keyed by
// (N, Z, Source). A parallel map per quantity holds optional
// uncertainties, populated only for experimental sources.
//
// # Invariants
//
//   - Binding energies are negative. Put rejects a value >= 0 with
//     ErrInvalidSign; the reader drops such values before they get here.
//   - No silent overwrite. A differing value for an occupied key fails with
//     *DuplicateKeyError; re-putting the identical value is a no-op, so a
//     reconciliation pass can be replayed.
//   - Enumeration is deterministic: keys sort by source (theory first,
//     enum order), then Z, then N.
//
// # Lifecycle
//
// A store is populated once, derived, then frozen. After Freeze every write
// returns ErrFrozen except Exclude, which applies an explicit deletion list
// before residual statistics are recomputed.
//
// The store does no locking. Concurrent readers are safe once it is frozen
// and no Exclude is in flight.
package store
