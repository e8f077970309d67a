package derive

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/store"
	"github.com/roach88/nucmass/internal/testutil"
	"github.com/roach88/nucmass/internal/units"
)

func key(src nuclide.Source, z, n int) store.Key {
	return store.Key{N: n, Z: z, Source: src}
}

func snapshotOf(st *store.Store) map[nuclide.Quantity][]store.Entry {
	out := make(map[nuclide.Quantity][]store.Entry)
	for _, q := range nuclide.Quantities {
		out[q] = st.Entries(q)
	}
	return out
}

func TestFillFromBinding_MatchesDifference(t *testing.T) {
	st := store.New()
	testutil.PutBindingGrid(t, st, nuclide.FRDM2012, 20, 28, 20, 40, testutil.LiquidDrop)

	stats, err := FillFromBinding(st, nuclide.FRDM2012, nuclide.SeparationQuantities, DefaultConfig())
	require.NoError(t, err)
	assert.Positive(t, stats.Derived)
	assert.Zero(t, stats.BelowLimit)

	checked := 0
	for _, k := range st.KeysFor(nuclide.BindingEnergy, nuclide.FRDM2012) {
		be, _ := st.Get(nuclide.BindingEnergy, k)
		for _, q := range nuclide.SeparationQuantities {
			dz, dn := q.Neighbor()
			lighter, ok := st.Get(nuclide.BindingEnergy, k.Shift(-dz, -dn))
			got, has := st.Get(q, k)
			if !ok {
				assert.False(t, has, "%s %s without neighbour", q, k)
				continue
			}
			require.True(t, has, "%s %s", q, k)
			assert.Equal(t, units.Round(lighter-be, DefaultDigits), got, "%s %s", q, k)
			checked++
		}
	}
	assert.Equal(t, stats.Derived, checked)

	// bound nuclei have positive separation energies
	s2n, ok := st.Get(nuclide.TwoNeutronSeparation, key(nuclide.FRDM2012, 20, 28))
	require.True(t, ok)
	assert.Greater(t, s2n, 0.0)
}

func TestFillFromBinding_SignConvention(t *testing.T) {
	st := store.New()
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.OctSLy4, 8, 8), -127.6))
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.OctSLy4, 8, 10), -139.8))

	_, err := FillFromBinding(st, nuclide.OctSLy4, nuclide.SeparationQuantities, DefaultConfig())
	require.NoError(t, err)

	got, ok := st.Get(nuclide.TwoNeutronSeparation, key(nuclide.OctSLy4, 8, 10))
	require.True(t, ok)
	assert.InDelta(t, 12.2, got, 1e-9)
	assert.False(t, st.Has(nuclide.TwoNeutronSeparation, key(nuclide.OctSLy4, 8, 8)))
	assert.False(t, st.Has(nuclide.OneNeutronSeparation, key(nuclide.OctSLy4, 8, 10)), "N=9 is missing")
}

func TestFillFromBinding_LowLimit(t *testing.T) {
	st := store.New()
	// past the dripline: adding two neutrons unbinds the nucleus
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.FRDM2012, 8, 16), -168.5))
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.FRDM2012, 8, 18), -167.0))
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.FRDM2012, 8, 20), -170.0))

	cfg := DefaultConfig()
	cfg.LowLimit = 0
	stats, err := FillFromBinding(st, nuclide.FRDM2012, []nuclide.Quantity{nuclide.TwoNeutronSeparation}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Derived)
	assert.Equal(t, 1, stats.BelowLimit)
	assert.False(t, st.Has(nuclide.TwoNeutronSeparation, key(nuclide.FRDM2012, 8, 18)), "excluded, not clamped")
	assert.True(t, st.Has(nuclide.TwoNeutronSeparation, key(nuclide.FRDM2012, 8, 20)))
}

func TestFillFromBinding_RejectsBindingQuantity(t *testing.T) {
	_, err := FillFromBinding(store.New(), nuclide.FRDM2012, []nuclide.Quantity{nuclide.BindingEnergy}, DefaultConfig())
	assert.Error(t, err)
}

func TestFillFromBinding_Conflict(t *testing.T) {
	st := store.New()
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.HFB24, 20, 20), -342.1))
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.HFB24, 20, 21), -350.3))
	require.NoError(t, st.Put(nuclide.OneNeutronSeparation, key(nuclide.HFB24, 20, 21), 8.36))

	_, err := FillFromBinding(st, nuclide.HFB24, []nuclide.Quantity{nuclide.OneNeutronSeparation}, DefaultConfig())
	require.Error(t, err)
	assert.True(t, store.IsDuplicateKey(err))

	// the default plan leaves HFB-24's own S1n alone
	_, err = FillFromBinding(st, nuclide.HFB24, DefaultQuantities(nuclide.HFB24), DefaultConfig())
	require.NoError(t, err)
}

func TestFillFromBinding_Idempotent(t *testing.T) {
	st := store.New()
	testutil.PutBindingGrid(t, st, nuclide.OctUNEDF1, 50, 54, 60, 80, testutil.LiquidDrop)

	_, err := FillFromBinding(st, nuclide.OctUNEDF1, nuclide.SeparationQuantities, DefaultConfig())
	require.NoError(t, err)
	first := snapshotOf(st)

	_, err = FillFromBinding(st, nuclide.OctUNEDF1, nuclide.SeparationQuantities, DefaultConfig())
	require.NoError(t, err)
	if diff := cmp.Diff(first, snapshotOf(st)); diff != "" {
		t.Errorf("second fill changed the store (-first +second):\n%s", diff)
	}
}

func TestDefaultQuantities(t *testing.T) {
	assert.Equal(t, nuclide.SeparationQuantities, DefaultQuantities(nuclide.FRDM2012))
	assert.Equal(t, nuclide.SeparationQuantities, DefaultQuantities(nuclide.OctSkP))
	assert.Equal(t,
		[]nuclide.Quantity{nuclide.TwoNeutronSeparation, nuclide.TwoProtonSeparation},
		DefaultQuantities(nuclide.HFB24))
	assert.Nil(t, DefaultQuantities(nuclide.SLy4))
	assert.Nil(t, DefaultQuantities(nuclide.AME2016))
}

// chainAME stores AME2016 binding energies with uncertainties along Z=20.
func chainAME(t *testing.T, st *store.Store, ns ...int) {
	t.Helper()
	for _, n := range ns {
		be := testutil.LiquidDrop(20, n)
		require.NoError(t, st.PutWithUncertainty(nuclide.BindingEnergy, key(nuclide.AME2016, 20, n), be, 0.002))
	}
}

func TestReconcileCampaigns_Fallback(t *testing.T) {
	st := store.New()
	chainAME(t, st, 18, 19, 20, 21, 22, 23, 24)
	jyfl := -361.5
	require.NoError(t, st.PutWithUncertainty(nuclide.BindingEnergy, key(nuclide.JYFLTRAP2017, 20, 22), jyfl, 0.001))

	stats, err := ReconcileCampaigns(st, []nuclide.Source{nuclide.JYFLTRAP2017}, DefaultConfig())
	require.NoError(t, err)
	// S1n and S2n, up and down; no Z=19/21/22/18 neighbours for the proton side
	assert.Equal(t, 4, stats.Derived)
	assert.Equal(t, 4, stats.Fallback)

	ame := func(n int) float64 {
		v, _ := st.Get(nuclide.BindingEnergy, key(nuclide.AME2016, 20, n))
		return v
	}
	wantErr := units.Round(math.Hypot(0.002, 0.001), DefaultDigits)

	cases := []struct {
		q    nuclide.Quantity
		n    int
		want float64
	}{
		{nuclide.TwoNeutronSeparation, 22, units.Round(ame(20)-jyfl, 6)},
		{nuclide.TwoNeutronSeparation, 24, units.Round(jyfl-ame(24), 6)},
		{nuclide.OneNeutronSeparation, 22, units.Round(ame(21)-jyfl, 6)},
		{nuclide.OneNeutronSeparation, 23, units.Round(jyfl-ame(23), 6)},
	}
	for _, tc := range cases {
		k := key(nuclide.JYFLTRAP2017, 20, tc.n)
		got, ok := st.Get(tc.q, k)
		require.True(t, ok, "%s %s", tc.q, k)
		assert.Equal(t, tc.want, got, "%s %s", tc.q, k)
		u, ok := st.Uncertainty(tc.q, k)
		require.True(t, ok)
		assert.Equal(t, wantErr, u)
	}
	assert.False(t, st.Has(nuclide.OneProtonSeparation, key(nuclide.JYFLTRAP2017, 20, 22)))
	assert.False(t, st.Has(nuclide.TwoNeutronSeparation, key(nuclide.AME2016, 20, 24)), "reference is never written")
}

func TestReconcileCampaigns_SameSourcePreferred(t *testing.T) {
	st := store.New()
	chainAME(t, st, 30, 32)
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.RIKEN2018, 20, 30), -400.0))
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.RIKEN2018, 20, 32), -404.0))

	stats, err := ReconcileCampaigns(st, []nuclide.Source{nuclide.RIKEN2018}, DefaultConfig())
	require.NoError(t, err)

	got, ok := st.Get(nuclide.TwoNeutronSeparation, key(nuclide.RIKEN2018, 20, 32))
	require.True(t, ok)
	assert.Equal(t, 4.0, got)
	// no uncertainties in the campaign table, so none on the result
	_, ok = st.Uncertainty(nuclide.TwoNeutronSeparation, key(nuclide.RIKEN2018, 20, 32))
	assert.False(t, ok)

	// N=28 is in neither table
	assert.False(t, st.Has(nuclide.TwoNeutronSeparation, key(nuclide.RIKEN2018, 20, 30)))
	assert.Zero(t, stats.Fallback)
}

func TestReconcileCampaigns_CountsEachValueOnce(t *testing.T) {
	st := store.New()
	chainAME(t, st, 30, 32)
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.RIKEN2018, 20, 30), -400.0))
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.RIKEN2018, 20, 32), -404.0))

	// S2n(N=32) is reached from N=30 as the heavier neighbour and from
	// N=32 against its lighter one
	stats, err := ReconcileCampaigns(st, []nuclide.Source{nuclide.RIKEN2018}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Derived)
	assert.Equal(t, 1, st.Len(nuclide.TwoNeutronSeparation))

	stats, err = ReconcileCampaigns(st, []nuclide.Source{nuclide.RIKEN2018}, DefaultConfig())
	require.NoError(t, err)
	assert.Zero(t, stats.Derived, "nothing new on a second pass")
}

func TestReconcileCampaigns_RemovesDuplicate(t *testing.T) {
	st := store.New()
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.AME2016, 20, 18), -300.0))
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.NewOther, 20, 20), -312.345))
	require.NoError(t, st.Put(nuclide.TwoNeutronSeparation, key(nuclide.JYFLTRAP2017, 20, 20), 12.345))

	stats, err := ReconcileCampaigns(st, []nuclide.Source{nuclide.NewOther}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.False(t, st.Has(nuclide.TwoNeutronSeparation, key(nuclide.NewOther, 20, 20)))
	assert.True(t, st.Has(nuclide.TwoNeutronSeparation, key(nuclide.JYFLTRAP2017, 20, 20)))
}

func TestRemoveDuplicates(t *testing.T) {
	st := store.New()
	require.NoError(t, st.PutWithUncertainty(nuclide.TwoNeutronSeparation, key(nuclide.JYFLTRAP2017, 20, 20), 12.345, 0.01))
	require.NoError(t, st.PutWithUncertainty(nuclide.TwoNeutronSeparation, key(nuclide.NewOther, 20, 20), 12.345, 0.02))
	require.NoError(t, st.Put(nuclide.TwoNeutronSeparation, key(nuclide.NewOther, 20, 22), 10.0))
	require.NoError(t, st.Put(nuclide.TwoNeutronSeparation, key(nuclide.JYFLTRAP2017, 20, 22), 10.0000001))

	n, err := RemoveDuplicates(st, nuclide.NewOther)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.False(t, st.Has(nuclide.TwoNeutronSeparation, key(nuclide.NewOther, 20, 20)))
	_, ok := st.Uncertainty(nuclide.TwoNeutronSeparation, key(nuclide.NewOther, 20, 20))
	assert.False(t, ok)
	assert.True(t, st.Has(nuclide.TwoNeutronSeparation, key(nuclide.NewOther, 20, 22)), "only exact matches are duplicates")

	// the earlier vintage is never the one removed
	n, err = RemoveDuplicates(st, nuclide.JYFLTRAP2017)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, st.Has(nuclide.TwoNeutronSeparation, key(nuclide.JYFLTRAP2017, 20, 20)))
}

func TestReconcileCampaigns_Idempotent(t *testing.T) {
	st := store.New()
	chainAME(t, st, 26, 27, 28, 29, 30)
	require.NoError(t, st.PutWithUncertainty(nuclide.BindingEnergy, key(nuclide.TRIUMF2018, 20, 28), -418.0, 0.003))
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.NewOther, 20, 28), -418.0))

	campaigns := nuclide.Post2016Experiment
	_, err := ReconcileCampaigns(st, campaigns, DefaultConfig())
	require.NoError(t, err)
	first := snapshotOf(st)

	_, err = ReconcileCampaigns(st, campaigns, DefaultConfig())
	require.NoError(t, err)
	if diff := cmp.Diff(first, snapshotOf(st)); diff != "" {
		t.Errorf("second pass changed the store (-first +second):\n%s", diff)
	}
}

func TestReconcileCampaigns_InvalidSources(t *testing.T) {
	st := store.New()
	_, err := ReconcileCampaigns(st, []nuclide.Source{nuclide.AME2016}, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = ReconcileCampaigns(st, []nuclide.Source{nuclide.SLy4}, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidSource)

	cfg := DefaultConfig()
	cfg.Reference = nuclide.FRDM2012
	_, err = ReconcileCampaigns(st, []nuclide.Source{nuclide.JYFLTRAP2017}, cfg)
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestReconcileCampaigns_Conflict(t *testing.T) {
	st := store.New()
	chainAME(t, st, 20)
	require.NoError(t, st.Put(nuclide.BindingEnergy, key(nuclide.TRIUMF2018, 20, 22), -361.0))
	require.NoError(t, st.Put(nuclide.TwoNeutronSeparation, key(nuclide.TRIUMF2018, 20, 22), 1.0))

	_, err := ReconcileCampaigns(st, []nuclide.Source{nuclide.TRIUMF2018}, DefaultConfig())
	require.Error(t, err)
	assert.True(t, store.IsDuplicateKey(err))
}
