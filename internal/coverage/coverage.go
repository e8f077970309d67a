// Package coverage reports which nuclides a later experimental vintage
// adds over an earlier one.
package coverage

import (
	"errors"
	"fmt"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/store"
)

// ErrVintageOrder is returned when the earlier source is not older than
// the later one, or either is not experimental.
var ErrVintageOrder = errors.New("sources not in vintage order")

// Status marks a nuclide of the later vintage.
type Status int

const (
	Existing Status = -1
	New      Status = 1
)

func (s Status) String() string {
	switch s {
	case Existing:
		return "existing"
	case New:
		return "new"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Entry is one nuclide of the later vintage.
type Entry struct {
	Nuclide nuclide.Nuclide `json:"nuclide"`
	Status  Status          `json:"status"`
}

// Report compares one quantity between two vintages.
type Report struct {
	Quantity nuclide.Quantity `json:"quantity"`
	Earlier  nuclide.Source   `json:"earlier"`
	Later    nuclide.Source   `json:"later"`
	Entries  []Entry          `json:"entries"`
	New      int              `json:"new"`
	Existing int              `json:"existing"`
}

// Filter restricts which nuclides are compared.
type Filter func(nuclide.Nuclide) bool

// EvenEven admits even-Z, even-N nuclides.
func EvenEven(n nuclide.Nuclide) bool { return n.EvenEven() }

// Compare classifies every nuclide having q in later as New when earlier
// has no value for it, Existing otherwise. Entries are sorted by Z then N.
func Compare(st *store.Store, q nuclide.Quantity, earlier, later nuclide.Source, filters ...Filter) (*Report, error) {
	if !earlier.IsExperiment() || !later.IsExperiment() || earlier.Vintage() >= later.Vintage() {
		return nil, fmt.Errorf("coverage %s vs %s: %w", later, earlier, ErrVintageOrder)
	}
	r := &Report{Quantity: q, Earlier: earlier, Later: later}
keys:
	for _, k := range st.KeysFor(q, later) {
		nuc := k.Nuclide()
		for _, f := range filters {
			if !f(nuc) {
				continue keys
			}
		}
		e := Entry{Nuclide: nuc, Status: New}
		if st.Has(q, k.In(earlier)) {
			e.Status = Existing
			r.Existing++
		} else {
			r.New++
		}
		r.Entries = append(r.Entries, e)
	}
	return r, nil
}

// NewNuclides returns the nuclides marked New.
func (r *Report) NewNuclides() []nuclide.Nuclide {
	var out []nuclide.Nuclide
	for _, e := range r.Entries {
		if e.Status == New {
			out = append(out, e.Nuclide)
		}
	}
	return out
}
