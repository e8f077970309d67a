// Package derive computes separation energies from binding energies.
//
// Every separation energy is a finite difference of two binding energies,
//
//	S(Z, N) = BE(lighter) - BE(Z, N)
//
// where the lighter nucleus has one or two fewer neutrons or protons
// (nuclide.Quantity.Neighbor). Binding energies are negative, so a bound
// configuration has a positive separation energy. Results are rounded to
// Config.Digits.
//
// FillFromBinding covers theory tables that tabulate binding energy only.
// ReconcileCampaigns covers post-2016 experimental campaigns: each newly
// measured mass is paired with its neighbours from the same campaign where
// available and from the reference evaluation otherwise, and entries that
// merely repeat an earlier vintage are removed.
//
// Both operations write through store.Store.Put, so rerunning them on the
// same store is a no-op and a genuine conflict surfaces as
// *store.DuplicateKeyError.
package derive
