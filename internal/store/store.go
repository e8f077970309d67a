package store

import (
	"fmt"
	"sort"

	"github.com/roach88/nucmass/internal/nuclide"
)

// Key identifies one entry of one quantity table.
type Key struct {
	N      int            `json:"n"`
	Z      int            `json:"z"`
	Source nuclide.Source `json:"source"`
}

// KeyOf builds the key of nuc in src.
func KeyOf(nuc nuclide.Nuclide, src nuclide.Source) Key {
	return Key{N: nuc.N, Z: nuc.Z, Source: src}
}

// Nuclide returns the nucleus part of the key.
func (k Key) Nuclide() nuclide.Nuclide {
	return nuclide.Nuclide{Z: k.Z, N: k.N}
}

// Shift returns the key of the nucleus dz protons and dn neutrons away, in
// the same source.
func (k Key) Shift(dz, dn int) Key {
	return Key{N: k.N + dn, Z: k.Z + dz, Source: k.Source}
}

// In returns the same nucleus in another source.
func (k Key) In(src nuclide.Source) Key {
	return Key{N: k.N, Z: k.Z, Source: src}
}

func (k Key) String() string {
	return fmt.Sprintf("(N=%d,Z=%d,%s)", k.N, k.Z, k.Source)
}

func (k Key) valid() bool {
	return k.N >= 0 && k.Z >= 0 && k.Source.Valid()
}

// Entry is one stored value with its optional uncertainty.
type Entry struct {
	Key         Key      `json:"key"`
	Value       float64  `json:"value"`
	Uncertainty *float64 `json:"uncertainty,omitempty"`
}

type table struct {
	values map[Key]float64
	errs   map[Key]float64
}

func newTable() *table {
	return &table{
		values: make(map[Key]float64),
		errs:   make(map[Key]float64),
	}
}

// Store is the canonical (N, Z, Source) -> value state. The zero value is
// not usable; call New.
type Store struct {
	tables       map[nuclide.Quantity]*table
	deformations map[Key]Deformation
	frozen       bool
}

// New returns an empty, writable store.
func New() *Store {
	s := &Store{
		tables:       make(map[nuclide.Quantity]*table, len(nuclide.Quantities)),
		deformations: make(map[Key]Deformation),
	}
	for _, q := range nuclide.Quantities {
		s.tables[q] = newTable()
	}
	return s
}

func (s *Store) table(q nuclide.Quantity) (*table, error) {
	t, ok := s.tables[q]
	if !ok {
		return nil, fmt.Errorf("unknown quantity %d", int(q))
	}
	return t, nil
}

func (s *Store) checkWrite(q nuclide.Quantity, k Key, v float64) (*table, error) {
	if s.frozen {
		return nil, ErrFrozen
	}
	if !k.valid() {
		return nil, fmt.Errorf("put %s %s: %w", q, k, ErrInvalidKey)
	}
	t, err := s.table(q)
	if err != nil {
		return nil, err
	}
	if q == nuclide.BindingEnergy && v >= 0 {
		return nil, fmt.Errorf("put %s %s = %v: %w", q, k, v, ErrInvalidSign)
	}
	return t, nil
}

// Put stores v for (q, k). Re-putting an identical value is a no-op; a
// differing value returns *DuplicateKeyError.
func (s *Store) Put(q nuclide.Quantity, k Key, v float64) error {
	t, err := s.checkWrite(q, k, v)
	if err != nil {
		return err
	}
	if old, ok := t.values[k]; ok {
		if old != v {
			return &DuplicateKeyError{Quantity: q, Key: k, Existing: old, Incoming: v}
		}
		return nil
	}
	t.values[k] = v
	return nil
}

// PutWithUncertainty stores v and its uncertainty u for (q, k). An
// identical value with no recorded uncertainty gains u.
func (s *Store) PutWithUncertainty(q nuclide.Quantity, k Key, v, u float64) error {
	t, err := s.checkWrite(q, k, v)
	if err != nil {
		return err
	}
	if old, ok := t.values[k]; ok && old != v {
		return &DuplicateKeyError{Quantity: q, Key: k, Existing: old, Incoming: v}
	}
	if oldErr, ok := t.errs[k]; ok && oldErr != u {
		return &DuplicateKeyError{Quantity: q, Key: k, Existing: oldErr, Incoming: u, Uncertainty: true}
	}
	t.values[k] = v
	t.errs[k] = u
	return nil
}

// Get returns the value for (q, k).
func (s *Store) Get(q nuclide.Quantity, k Key) (float64, bool) {
	t, ok := s.tables[q]
	if !ok {
		return 0, false
	}
	v, ok := t.values[k]
	return v, ok
}

// Uncertainty returns the uncertainty recorded for (q, k).
func (s *Store) Uncertainty(q nuclide.Quantity, k Key) (float64, bool) {
	t, ok := s.tables[q]
	if !ok {
		return 0, false
	}
	u, ok := t.errs[k]
	return u, ok
}

// Has reports whether a value exists for (q, k).
func (s *Store) Has(q nuclide.Quantity, k Key) bool {
	_, ok := s.Get(q, k)
	return ok
}

// Len returns the number of values stored for q.
func (s *Store) Len(q nuclide.Quantity) int {
	t, ok := s.tables[q]
	if !ok {
		return 0
	}
	return len(t.values)
}

// Freeze makes the store read-only, except for Exclude.
func (s *Store) Freeze() {
	s.frozen = true
}

// Frozen reports whether Freeze has been called.
func (s *Store) Frozen() bool {
	return s.frozen
}

// Remove deletes (q, k) and its uncertainty. It is only available before
// Freeze, for the derivation dedup pass. Removing an absent key is a no-op.
func (s *Store) Remove(q nuclide.Quantity, k Key) error {
	if s.frozen {
		return ErrFrozen
	}
	t, err := s.table(q)
	if err != nil {
		return err
	}
	delete(t.values, k)
	delete(t.errs, k)
	return nil
}

// Exclude applies a deletion list to q and returns how many entries were
// actually removed. It is allowed after Freeze.
func (s *Store) Exclude(q nuclide.Quantity, keys ...Key) int {
	t, ok := s.tables[q]
	if !ok {
		return 0
	}
	removed := 0
	for _, k := range keys {
		if _, ok := t.values[k]; ok {
			delete(t.values, k)
			delete(t.errs, k)
			removed++
		}
	}
	return removed
}

// Keys returns every key holding a value for q, sorted.
func (s *Store) Keys(q nuclide.Quantity) []Key {
	t, ok := s.tables[q]
	if !ok {
		return nil
	}
	out := make([]Key, 0, len(t.values))
	for k := range t.values {
		out = append(out, k)
	}
	SortKeys(out)
	return out
}

// KeysFor returns the keys of src holding a value for q, sorted by Z then N.
func (s *Store) KeysFor(q nuclide.Quantity, src nuclide.Source) []Key {
	t, ok := s.tables[q]
	if !ok {
		return nil
	}
	var out []Key
	for k := range t.values {
		if k.Source == src {
			out = append(out, k)
		}
	}
	SortKeys(out)
	return out
}

// Entries returns the sorted contents of q, uncertainties included.
func (s *Store) Entries(q nuclide.Quantity) []Entry {
	keys := s.Keys(q)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		e := Entry{Key: k, Value: s.tables[q].values[k]}
		if u, ok := s.tables[q].errs[k]; ok {
			e.Uncertainty = &u
		}
		out = append(out, e)
	}
	return out
}

// Sources returns the sources holding at least one value for q, sorted.
func (s *Store) Sources(q nuclide.Quantity) []nuclide.Source {
	t, ok := s.tables[q]
	if !ok {
		return nil
	}
	seen := make(map[nuclide.Source]bool)
	for k := range t.values {
		seen[k.Source] = true
	}
	return sortedSources(seen)
}

// SourcesByCategory returns the sources of category c holding any value of
// any quantity, sorted.
func (s *Store) SourcesByCategory(c nuclide.Category) []nuclide.Source {
	seen := make(map[nuclide.Source]bool)
	for _, t := range s.tables {
		for k := range t.values {
			if k.Source.Category() == c {
				seen[k.Source] = true
			}
		}
	}
	return sortedSources(seen)
}

// Bounds is the (Z, N) extent of one source.
type Bounds struct {
	MinZ, MaxZ int
	MinN, MaxN int
	Count      int
}

// Bounds returns the extent of src over all quantities. ok is false when
// src holds nothing. Count is the number of distinct nuclides.
func (s *Store) Bounds(src nuclide.Source) (Bounds, bool) {
	seen := make(map[nuclide.Nuclide]bool)
	var b Bounds
	for _, q := range nuclide.Quantities {
		for k := range s.tables[q].values {
			if k.Source != src {
				continue
			}
			if len(seen) == 0 {
				b = Bounds{MinZ: k.Z, MaxZ: k.Z, MinN: k.N, MaxN: k.N}
			}
			seen[k.Nuclide()] = true
			b.MinZ = min(b.MinZ, k.Z)
			b.MaxZ = max(b.MaxZ, k.Z)
			b.MinN = min(b.MinN, k.N)
			b.MaxN = max(b.MaxN, k.N)
		}
	}
	b.Count = len(seen)
	return b, len(seen) > 0
}

func sortedSources(seen map[nuclide.Source]bool) []nuclide.Source {
	out := make([]nuclide.Source, 0, len(seen))
	for src := range seen {
		out = append(out, src)
	}
	nuclide.SortSources(out)
	return out
}

// SortKeys sorts in place by source order, then Z, then N.
func SortKeys(keys []Key) {
	order := make(map[nuclide.Source]int)
	for i, src := range nuclide.All() {
		order[src] = i
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Source != b.Source {
			return order[a.Source] < order[b.Source]
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.N < b.N
	})
}
