package derive

import (
	"errors"
	"fmt"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/store"
	"github.com/roach88/nucmass/internal/units"
)

// DefaultLowLimit keeps every finite difference a table can produce.
const DefaultLowLimit = -100000.0

// DefaultDigits is the rounding applied to derived values.
const DefaultDigits = 6

// ErrInvalidSource is returned when a source cannot take part in a
// derivation.
var ErrInvalidSource = errors.New("invalid source for derivation")

// Config holds the derivation knobs.
type Config struct {
	// Reference is the comprehensive evaluation campaigns fall back to.
	Reference nuclide.Source
	// Digits rounds every derived value and uncertainty.
	Digits int
	// LowLimit drops filled separation energies below it.
	LowLimit float64
}

// DefaultConfig falls back to AME2016 and keeps everything.
func DefaultConfig() Config {
	return Config{
		Reference: nuclide.AME2016,
		Digits:    DefaultDigits,
		LowLimit:  DefaultLowLimit,
	}
}

// Stats counts what one derivation call did.
type Stats struct {
	Derived int `json:"derived"`
	// BelowLimit counts differences dropped by Config.LowLimit.
	BelowLimit int `json:"below_limit"`
	// Fallback counts differences that used a reference-source neighbour.
	Fallback int `json:"fallback"`
	// Removed counts campaign entries dropped as duplicates.
	Removed int `json:"removed"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Derived += o.Derived
	s.BelowLimit += o.BelowLimit
	s.Fallback += o.Fallback
	s.Removed += o.Removed
}

// DefaultQuantities returns the separation energies a binding-only source
// should be filled with. HFB-24 tabulates its own S1n/S1p, so only the
// two-nucleon flavours are derived for it.
func DefaultQuantities(src nuclide.Source) []nuclide.Quantity {
	switch {
	case src == nuclide.FRDM2012:
		return nuclide.SeparationQuantities
	case src == nuclide.HFB24:
		return []nuclide.Quantity{nuclide.TwoNeutronSeparation, nuclide.TwoProtonSeparation}
	case src.Family() == nuclide.FamilyOctupole:
		return nuclide.SeparationQuantities
	}
	return nil
}

// difference returns BE(lighter) - BE(heavier), rounded.
func difference(lighter, heavier float64, digits int) float64 {
	return units.Round(lighter-heavier, digits)
}

// FillFromBinding derives quantities for every nuclide with a binding
// energy in src whose lighter neighbour also has one. A missing neighbour
// yields no value.
func FillFromBinding(st *store.Store, src nuclide.Source, quantities []nuclide.Quantity, cfg Config) (Stats, error) {
	var stats Stats
	for _, q := range quantities {
		if !q.IsSeparation() {
			return stats, fmt.Errorf("fill %s: %s is not a separation energy", src, q)
		}
	}
	for _, k := range st.KeysFor(nuclide.BindingEnergy, src) {
		be, _ := st.Get(nuclide.BindingEnergy, k)
		for _, q := range quantities {
			dz, dn := q.Neighbor()
			lighter, ok := st.Get(nuclide.BindingEnergy, k.Shift(-dz, -dn))
			if !ok {
				continue
			}
			d := difference(lighter, be, cfg.Digits)
			if d < cfg.LowLimit {
				stats.BelowLimit++
				continue
			}
			if err := st.Put(q, k, d); err != nil {
				return stats, fmt.Errorf("fill %s: %w", src, err)
			}
			stats.Derived++
		}
	}
	return stats, nil
}
