package dripline

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/store"
	"github.com/roach88/nucmass/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func locate(t *testing.T, st *store.Store, sources ...nuclide.Source) *Table {
	t.Helper()
	st.Freeze()
	table, err := Locate(context.Background(), st, sources, DefaultConfig())
	require.NoError(t, err)
	return table
}

func TestLocate_NeutronMonotonicChain(t *testing.T) {
	st := store.New()
	// S2n strictly decreasing: 15.3 at N=20, dropping 0.6 MeV per neutron
	s2n := testutil.LinearChain(20, 60, 2, 15.3, 0.6)
	testutil.PutChain(t, st, nuclide.TwoNeutronSeparation, nuclide.SLy4, 20, s2n)

	// manual crossing: S2n(46) = -0.3 >= -1 and S2n(48) = -1.5 <= -1
	require.Equal(t, -0.3, s2n[46])
	require.Equal(t, -1.5, s2n[48])

	table := locate(t, st, nuclide.SLy4)
	b, ok := table.Boundary(20, nuclide.SLy4, Neutron)
	require.True(t, ok)
	assert.Equal(t, 46, b.N)
	assert.False(t, b.Fallback)
}

func TestLocate_NeutronRatioFilter(t *testing.T) {
	st := store.New()
	// a spurious dip at N=22 (N/Z = 1.1) must not count
	testutil.PutChain(t, st, nuclide.TwoNeutronSeparation, nuclide.SkP, 20, map[int]float64{
		20: 2.0, 22: -2.0, 24: 5.0, 30: 3.0, 32: 0.5, 34: -0.8, 36: -2.0, 38: -4.0,
	})
	table := locate(t, st, nuclide.SkP)
	b, ok := table.Boundary(20, nuclide.SkP, Neutron)
	require.True(t, ok)
	assert.Equal(t, 34, b.N, "first hit with N/Z > 1.5")
}

func TestLocate_ProtonSide(t *testing.T) {
	st := store.New()
	testutil.PutChain(t, st, nuclide.TwoProtonSeparation, nuclide.UNEDF0, 20, map[int]float64{
		10: -3.0, 12: -2.0, 14: -1.0, 16: 0.0, 18: 2.5, 20: 5.0,
	})
	table := locate(t, st, nuclide.UNEDF0)
	b, ok := table.Boundary(20, nuclide.UNEDF0, Proton)
	require.True(t, ok)
	assert.Equal(t, 16, b.N)
	assert.False(t, b.Fallback)

	_, ok = table.Boundary(20, nuclide.UNEDF0, Neutron)
	assert.False(t, ok, "no S2n crossing and no binding energies")
}

func TestLocate_Fallback(t *testing.T) {
	st := store.New()
	for n := 20; n <= 31; n++ {
		require.NoError(t, st.Put(nuclide.BindingEnergy, store.Key{N: n, Z: 22, Source: nuclide.OctSkMStar}, testutil.LiquidDrop(22, n)))
	}
	require.NoError(t, st.Put(nuclide.BindingEnergy, store.Key{N: 24, Z: 21, Source: nuclide.OctSkMStar}, -390))

	table := locate(t, st, nuclide.OctSkMStar)

	p, ok := table.Boundary(22, nuclide.OctSkMStar, Proton)
	require.True(t, ok)
	assert.Equal(t, Boundary{Z: 22, Source: nuclide.OctSkMStar, Side: Proton, N: 20, Fallback: true}, p)

	n, ok := table.Boundary(22, nuclide.OctSkMStar, Neutron)
	require.True(t, ok)
	assert.Equal(t, 30, n.N, "odd N=31 is not a chain member")
	assert.True(t, n.Fallback)

	lo, hi, ok := table.Window(22, nuclide.OctSkMStar)
	require.True(t, ok)
	assert.Equal(t, [2]int{20, 30}, [2]int{lo, hi})

	_, ok = table.Boundary(21, nuclide.OctSkMStar, Proton)
	assert.False(t, ok, "odd Z chains are not scanned")
	assert.Equal(t, 2, table.Len())
}

func TestLocate_ParallelDeterministic(t *testing.T) {
	st := store.New()
	sources := nuclide.DriplineTheory()
	for i, src := range sources {
		for z := 8; z <= 30; z += 2 {
			testutil.PutChain(t, st, nuclide.TwoNeutronSeparation, src, z,
				testutil.LinearChain(z, 3*z, 2, 20, 0.2+0.01*float64(i)))
		}
		testutil.PutBindingGrid(t, st, src, 8, 30, 8, 60, testutil.LiquidDrop)
	}
	st.Freeze()

	first, err := Locate(context.Background(), st, sources, DefaultConfig())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Locate(context.Background(), st, sources, DefaultConfig())
		require.NoError(t, err)
		if diff := cmp.Diff(first.Boundaries(), again.Boundaries()); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}

	// every chain of every source has both sides
	assert.Equal(t, len(sources)*12*2, first.Len())
	bs := first.Boundaries()
	assert.Equal(t, sources[0], bs[0].Source)
	assert.Equal(t, 8, bs[0].Z)
	assert.Equal(t, Proton, bs[0].Side)
}

func TestLocate_Cancelled(t *testing.T) {
	st := store.New()
	testutil.PutChain(t, st, nuclide.TwoNeutronSeparation, nuclide.SLy4, 20, testutil.LinearChain(20, 40, 2, 10, 1))
	st.Freeze()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Locate(ctx, st, []nuclide.Source{nuclide.SLy4}, DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSide_String(t *testing.T) {
	assert.Equal(t, "proton", Proton.String())
	assert.Equal(t, "neutron", Neutron.String())
	assert.Equal(t, "Side(7)", Side(7).String())
}

func TestParseSide(t *testing.T) {
	for _, side := range []Side{Proton, Neutron} {
		got, err := ParseSide(side.String())
		require.NoError(t, err)
		assert.Equal(t, side, got)
	}
	_, err := ParseSide("alpha")
	assert.Error(t, err)

	var s Side
	require.NoError(t, s.UnmarshalText([]byte("neutron")))
	assert.Equal(t, Neutron, s)
}
