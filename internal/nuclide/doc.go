// Package nuclide provides the identity types shared by every other nucmass
// package: nuclides, quantities, and the closed set of mass-table sources.
//
// This package contains type definitions and the source registry only. All
// other internal packages import nuclide; nuclide imports nothing internal.
//
// Key design constraints:
//   - A nuclide is (Z, N); the mass number is always derived
//   - Sources are an enum with a registry row, never bare integers
//   - Binding energies are negative ("more bound = more negative")
//   - Separation energy = BE(fewer nucleons) - BE(more nucleons)
package nuclide
