package derive

import (
	"fmt"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/store"
	"github.com/roach88/nucmass/internal/units"
)

// operand is one binding energy taking part in a difference.
type operand struct {
	value float64
	err   float64
	// hasErr is false when the source tabulates no uncertainty.
	hasErr bool
}

func lookup(st *store.Store, k store.Key) (operand, bool) {
	v, ok := st.Get(nuclide.BindingEnergy, k)
	if !ok {
		return operand{}, false
	}
	e, hasErr := st.Uncertainty(nuclide.BindingEnergy, k)
	return operand{value: v, err: e, hasErr: hasErr}, true
}

// resolve finds the binding energy of k in its own source, falling back to
// the reference source.
func resolve(st *store.Store, k store.Key, ref nuclide.Source) (op operand, fallback, ok bool) {
	if op, ok := lookup(st, k); ok {
		return op, false, true
	}
	if op, ok := lookup(st, k.In(ref)); ok {
		return op, true, true
	}
	return operand{}, false, false
}

// ReconcileCampaigns derives S1n, S2n, S1p and S2p from the binding
// energies of each campaign source, oldest vintage first, then removes
// campaign entries that repeat an earlier vintage.
//
// For every nuclide with a binding energy in a campaign, both the nuclide
// itself (against its lighter neighbour) and its heavier neighbour (against
// the nuclide) get a value, stored under the campaign source. A neighbour
// missing from the campaign is taken from cfg.Reference. The uncertainty
// is the quadrature sum of the operand uncertainties when both have one.
func ReconcileCampaigns(st *store.Store, campaigns []nuclide.Source, cfg Config) (Stats, error) {
	var stats Stats
	if !cfg.Reference.IsExperiment() {
		return stats, fmt.Errorf("reconcile: reference %s: %w", cfg.Reference, ErrInvalidSource)
	}
	ordered := nuclide.ByVintage(campaigns)
	for _, src := range ordered {
		if !src.IsExperiment() || src == cfg.Reference {
			return stats, fmt.Errorf("reconcile %s: %w", src, ErrInvalidSource)
		}
		s, err := reconcileOne(st, src, cfg)
		stats.Add(s)
		if err != nil {
			return stats, fmt.Errorf("reconcile %s: %w", src, err)
		}
	}
	for _, src := range ordered {
		n, err := RemoveDuplicates(st, src)
		stats.Removed += n
		if err != nil {
			return stats, fmt.Errorf("dedup %s: %w", src, err)
		}
	}
	return stats, nil
}

func reconcileOne(st *store.Store, src nuclide.Source, cfg Config) (Stats, error) {
	var stats Stats
	for _, k := range st.KeysFor(nuclide.BindingEnergy, src) {
		anchor, _ := lookup(st, k)
		for _, q := range nuclide.SeparationQuantities {
			dz, dn := q.Neighbor()

			// the nuclide itself, against its lighter neighbour
			if lighter, fb, ok := resolve(st, k.Shift(-dz, -dn), cfg.Reference); ok {
				added, err := putDifference(st, q, k, lighter, anchor, cfg.Digits)
				if err != nil {
					return stats, err
				}
				stats.count(added, fb)
			}

			// the heavier neighbour, against the nuclide
			target := k.Shift(dz, dn)
			if heavier, fb, ok := resolve(st, target, cfg.Reference); ok {
				added, err := putDifference(st, q, target, anchor, heavier, cfg.Digits)
				if err != nil {
					return stats, err
				}
				stats.count(added, fb)
			}
		}
	}
	return stats, nil
}

// putDifference stores BE(lighter) - BE(heavier) under target and reports
// whether target had no value before.
func putDifference(st *store.Store, q nuclide.Quantity, target store.Key, lighter, heavier operand, digits int) (bool, error) {
	added := !st.Has(q, target)
	d := difference(lighter.value, heavier.value, digits)
	var err error
	if lighter.hasErr && heavier.hasErr {
		u := units.Round(units.Quadrature(lighter.err, heavier.err), digits)
		err = st.PutWithUncertainty(q, target, d, u)
	} else {
		err = st.Put(q, target, d)
	}
	if err != nil {
		return false, err
	}
	return added, nil
}

// count tallies one newly stored campaign value.
func (s *Stats) count(added, fallback bool) {
	if !added {
		return
	}
	s.Derived++
	if fallback {
		s.Fallback++
	}
}

// RemoveDuplicates drops every separation entry of src whose value equals,
// exactly, the entry for the same nuclide in an experimental source of an
// earlier vintage. The uncertainty goes with it. It returns the number of
// entries removed.
func RemoveDuplicates(st *store.Store, src nuclide.Source) (int, error) {
	var earlier []nuclide.Source
	for _, e := range st.SourcesByCategory(nuclide.Experiment) {
		if e.Vintage() < src.Vintage() {
			earlier = append(earlier, e)
		}
	}
	removed := 0
	for _, q := range nuclide.SeparationQuantities {
		for _, k := range st.KeysFor(q, src) {
			v, _ := st.Get(q, k)
			for _, e := range earlier {
				if ev, ok := st.Get(q, k.In(e)); ok && ev == v {
					if err := st.Remove(q, k); err != nil {
						return removed, err
					}
					removed++
					break
				}
			}
		}
	}
	return removed, nil
}
