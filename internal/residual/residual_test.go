package residual

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/nucmass/internal/dripline"
	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/store"
	"github.com/roach88/nucmass/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func put(t *testing.T, st *store.Store, q nuclide.Quantity, src nuclide.Source, z, n int, v float64) {
	t.Helper()
	require.NoError(t, st.Put(q, store.Key{N: n, Z: z, Source: src}, v))
}

func compute(t *testing.T, st *store.Store, theories ...nuclide.Source) *Set {
	t.Helper()
	st.Freeze()
	set, err := Compute(context.Background(), st, theories, nuclide.AME2016)
	require.NoError(t, err)
	return set
}

func TestCompute_ExperimentMinusTheory(t *testing.T) {
	st := store.New()
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.AME2016, 20, 20, 12.4)
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.SLy4, 20, 20, 12.1)
	put(t, st, nuclide.BindingEnergy, nuclide.AME2016, 20, 20, -342.052)
	put(t, st, nuclide.BindingEnergy, nuclide.SLy4, 20, 20, -344.1)
	// theory only: no residual
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.SLy4, 20, 22, 11.0)

	set := compute(t, st, nuclide.SLy4)
	assert.Equal(t, 2, set.Len())

	v, ok := set.Get(Key{N: 20, Z: 20, Theory: nuclide.SLy4, Reference: nuclide.AME2016, Quantity: nuclide.TwoNeutronSeparation})
	require.True(t, ok)
	assert.Equal(t, 0.3, v)

	v, ok = set.Get(Key{N: 20, Z: 20, Theory: nuclide.SLy4, Reference: nuclide.AME2016, Quantity: nuclide.BindingEnergy})
	require.True(t, ok)
	assert.Equal(t, 2.048, v)

	_, ok = set.Get(Key{N: 22, Z: 20, Theory: nuclide.SLy4, Reference: nuclide.AME2016, Quantity: nuclide.TwoNeutronSeparation})
	assert.False(t, ok)
}

func TestCompute_InvalidPair(t *testing.T) {
	st := store.New()
	_, err := Compute(context.Background(), st, []nuclide.Source{nuclide.AME2003}, nuclide.AME2016)
	assert.ErrorIs(t, err, ErrInvalidPair)

	_, err = Compute(context.Background(), st, []nuclide.Source{nuclide.SLy4}, nuclide.SkP)
	assert.ErrorIs(t, err, ErrInvalidPair)
}

func TestCompute_Cancelled(t *testing.T) {
	st := store.New()
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.SLy4, 20, 20, 12.1)
	st.Freeze()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Compute(ctx, st, []nuclide.Source{nuclide.SLy4}, nuclide.AME2016)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompute_ParallelDeterministic(t *testing.T) {
	st := store.New()
	testutil.PutBindingGrid(t, st, nuclide.AME2016, 8, 40, 8, 60, testutil.LiquidDrop)
	for i, src := range nuclide.ResidualTheory() {
		shift := 0.1 * float64(i+1)
		testutil.PutBindingGrid(t, st, src, 8, 40, 8, 60, func(z, n int) float64 {
			return testutil.LiquidDrop(z, n) - shift
		})
	}

	first := compute(t, st, nuclide.ResidualTheory()...)
	for i := 0; i < 5; i++ {
		again, err := Compute(context.Background(), st, nuclide.ResidualTheory(), nuclide.AME2016)
		require.NoError(t, err)
		for _, p := range first.Pairs() {
			if diff := cmp.Diff(first.Residuals(p.Theory, p.Reference, p.Quantity), again.Residuals(p.Theory, p.Reference, p.Quantity)); diff != "" {
				t.Fatalf("run %d, %s differs (-first +again):\n%s", i, p, diff)
			}
		}
	}

	pairs := first.Pairs()
	require.Len(t, pairs, len(nuclide.ResidualTheory()))
	assert.Equal(t, nuclide.ResidualTheory()[0], pairs[0].Theory)
}

func TestRMS_HandComputed(t *testing.T) {
	st := store.New()
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.AME2016, 20, 20, 10)
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.AME2016, 20, 22, 12)
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.SkP, 20, 20, 10.5)
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.SkP, 20, 22, 11)

	set := compute(t, st, nuclide.SkP)
	stat, err := set.RMS(nuclide.SkP, nuclide.AME2016, nuclide.TwoNeutronSeparation, EvenEven)
	require.NoError(t, err)
	assert.InDelta(t, 0.790569, stat.Value, 1e-6)
	assert.Equal(t, 2, stat.Count)
	assert.Equal(t, "even-even", stat.Subset)
}

func TestRMS_EmptySubset(t *testing.T) {
	st := store.New()
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.AME2016, 21, 20, 10)
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.SkP, 21, 20, 10.5)
	set := compute(t, st, nuclide.SkP)

	_, err := set.RMS(nuclide.SkP, nuclide.AME2016, nuclide.TwoNeutronSeparation, EvenEven)
	require.Error(t, err)
	assert.True(t, IsDivisionUndefined(err))
	var div *DivisionUndefinedError
	require.ErrorAs(t, err, &div)
	assert.Equal(t, "even-even", div.Subset)

	stat, err := set.RMS(nuclide.SkP, nuclide.AME2016, nuclide.TwoNeutronSeparation, All)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.Count)
}

func TestSubsets(t *testing.T) {
	st := store.New()
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.AME2003, 20, 20, 10)
	require.NoError(t, st.PutDeformation(store.Key{N: 22, Z: 20, Source: nuclide.OctSLy4}, store.Deformation{Beta2: 0.1, Beta3: 0.12}))
	require.NoError(t, st.PutDeformation(store.Key{N: 20, Z: 20, Source: nuclide.OctSLy4}, store.Deformation{Beta2: 0.1, Beta3: 0.01}))
	thresholds := store.OctupoleThresholds{Beta3Min: 0.05, Beta3Max: 1000, Beta2Max: 1000}

	k := func(z, n int) Key {
		return Key{N: n, Z: z, Theory: nuclide.SLy4, Reference: nuclide.AME2016, Quantity: nuclide.TwoNeutronSeparation}
	}

	assert.True(t, EvenEven.Match(k(20, 20)))
	assert.False(t, EvenEven.Match(k(20, 21)))
	assert.True(t, All.Match(k(21, 21)))
	assert.True(t, Subset{}.Match(k(21, 21)))

	oct := Octupole(st, thresholds)
	assert.True(t, oct.Match(k(20, 22)), "flag propagates from the octupole table")
	assert.False(t, oct.Match(k(20, 20)))

	since := NewSince(st, nuclide.AME2003)
	assert.Equal(t, "new-since-AME2003", since.Name)
	assert.False(t, since.Match(k(20, 20)))
	assert.True(t, since.Match(k(20, 22)))

	both := And(EvenEven, oct)
	assert.Equal(t, "even-even+octupole", both.Name)
	assert.True(t, both.Match(k(20, 22)))
	assert.False(t, both.Match(k(20, 20)))

	except := Except(nuclide.Nuclide{Z: 4, N: 8})
	assert.False(t, except.Match(k(4, 8)))
	assert.True(t, except.Match(k(4, 10)))
}

func TestParseSubset(t *testing.T) {
	st := store.New()
	for _, name := range []string{"", "even-even", "all", "octupole", "new-since-AME2003"} {
		_, err := ParseSubset(name, st, store.DefaultOctupoleThresholds)
		assert.NoError(t, err, name)
	}
	s, err := ParseSubset("octupole", st, store.DefaultOctupoleThresholds)
	require.NoError(t, err)
	assert.Equal(t, "octupole", s.Name)

	_, err = ParseSubset("new-since-SLy4", st, store.DefaultOctupoleThresholds)
	assert.ErrorIs(t, err, ErrUnknownSubset)
	_, err = ParseSubset("new-since-AME2099", st, store.DefaultOctupoleThresholds)
	assert.ErrorIs(t, err, ErrUnknownSubset)
	_, err = ParseSubset("odd-odd", st, store.DefaultOctupoleThresholds)
	assert.ErrorIs(t, err, ErrUnknownSubset)
	assert.NoError(t, CheckSubsetName("new-since-JYFL2017"))
}

func TestKnownBadS2n(t *testing.T) {
	st := store.New()
	for _, k := range KnownBadS2n() {
		require.NoError(t, st.Put(nuclide.TwoNeutronSeparation, k, 1.0))
	}
	put(t, st, nuclide.TwoNeutronSeparation, nuclide.AME2003, 20, 30, 1.0)
	st.Freeze()

	assert.Equal(t, len(KnownBadS2n()), st.Exclude(nuclide.TwoNeutronSeparation, KnownBadS2n()...))
	assert.Equal(t, 1, st.Len(nuclide.TwoNeutronSeparation))
}

func TestSeries_WithinDriplineWindow(t *testing.T) {
	st := store.New()
	testutil.PutChain(t, st, nuclide.TwoNeutronSeparation, nuclide.SLy4, 20, testutil.LinearChain(20, 60, 2, 15.3, 0.6))
	testutil.PutBindingGrid(t, st, nuclide.SLy4, 20, 20, 20, 50, testutil.LiquidDrop)
	exp := testutil.LinearChain(20, 60, 2, 15.5, 0.6)
	delete(exp, 30)
	testutil.PutChain(t, st, nuclide.TwoNeutronSeparation, nuclide.AME2016, 20, exp)
	st.Freeze()

	table, err := dripline.Locate(context.Background(), st, []nuclide.Source{nuclide.SLy4}, dripline.DefaultConfig())
	require.NoError(t, err)
	set, err := Compute(context.Background(), st, []nuclide.Source{nuclide.SLy4}, nuclide.AME2016)
	require.NoError(t, err)

	points, ok := set.Series(table, 20, nuclide.SLy4, nuclide.AME2016, nuclide.TwoNeutronSeparation, All)
	require.True(t, ok)
	// window 20..46, N=30 has no experimental value
	require.Len(t, points, 13)
	assert.Equal(t, Point{N: 20, Residual: 0.2}, points[0])
	assert.Equal(t, 46, points[len(points)-1].N)
	for _, p := range points {
		assert.NotEqual(t, 30, p.N)
		assert.InDelta(t, 0.2, p.Residual, 1e-9)
	}

	_, ok = set.Series(table, 22, nuclide.SLy4, nuclide.AME2016, nuclide.TwoNeutronSeparation, All)
	assert.False(t, ok)
}
