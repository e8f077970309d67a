// Package testutil builds synthetic mass tables for tests.
package testutil

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/store"
	"github.com/roach88/nucmass/internal/units"
)

// Liquid-drop coefficients in MeV.
const (
	aVolume    = 15.75
	aSurface   = 17.8
	aCoulomb   = 0.711
	aAsymmetry = 23.7
	aPairing   = 11.18
)

// LiquidDrop returns a semi-empirical binding energy for (z, n), negative
// and rounded to 6 digits. Light or very exotic inputs can come out >= 0;
// callers that need a stored value should stay in a physical region.
func LiquidDrop(z, n int) float64 {
	a := float64(z + n)
	if a == 0 {
		return 0
	}
	fz := float64(z)
	be := aVolume*a -
		aSurface*math.Cbrt(a*a) -
		aCoulomb*fz*(fz-1)/math.Cbrt(a) -
		aAsymmetry*float64((n-z)*(n-z))/a
	switch {
	case z%2 == 0 && n%2 == 0:
		be += aPairing / math.Sqrt(a)
	case z%2 == 1 && n%2 == 1:
		be -= aPairing / math.Sqrt(a)
	}
	return units.Round(-be, 6)
}

// BindingFunc yields the binding energy of (z, n).
type BindingFunc func(z, n int) float64

// PutBindingGrid stores f(z, n) as the binding energy of src for every
// z in [zMin, zMax] and n in [nMin, nMax]. Values >= 0 are skipped, as the
// reader would.
func PutBindingGrid(t testing.TB, st *store.Store, src nuclide.Source, zMin, zMax, nMin, nMax int, f BindingFunc) {
	t.Helper()
	for z := zMin; z <= zMax; z++ {
		for n := nMin; n <= nMax; n++ {
			be := f(z, n)
			if be >= 0 {
				continue
			}
			require.NoError(t, st.Put(nuclide.BindingEnergy, store.Key{N: n, Z: z, Source: src}, be))
		}
	}
}

// PutChain stores values (keyed by N) of q along the isotopic chain z.
func PutChain(t testing.TB, st *store.Store, q nuclide.Quantity, src nuclide.Source, z int, values map[int]float64) {
	t.Helper()
	for n, v := range values {
		require.NoError(t, st.Put(q, store.Key{N: n, Z: z, Source: src}, v))
	}
}

// LinearChain returns start - slope*(n-from) for n = from, from+step, ...,
// up to and including to.
func LinearChain(from, to, step int, start, slope float64) map[int]float64 {
	out := make(map[int]float64)
	for n := from; n <= to; n += step {
		out[n] = units.Round(start-slope*float64(n-from), 6)
	}
	return out
}

// MassExplorerLine renders the liquid-drop nucleus (z, n) as one Mass
// Explorer row: row Z N A BE S1p S2p S1n S2n.
func MassExplorerLine(row, z, n int) string {
	be := LiquidDrop(z, n)
	sep := func(dz, dn int) float64 {
		return units.Round(LiquidDrop(z-dz, n-dn)-be, 6)
	}
	return fmt.Sprintf("%d %d %d %d %.6f %.6f %.6f %.6f %.6f",
		row, z, n, z+n, be, sep(1, 0), sep(2, 0), sep(0, 1), sep(0, 2))
}
