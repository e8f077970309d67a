// Package reader parses external mass-table text files into normalized
// records.
//
// One ColumnMap describes one format family: which whitespace- or
// delimiter-separated fields hold Z, N (or A), and each quantity of interest.
// The registered families are listed in Formats.
//
// # Parsing policy
//
//   - A line whose Z/N cannot be parsed, or that is shorter than the widest
//     column the map references, is skipped and counted (ParseSkip)
//   - A non-numeric value ("*", "123#", NaN) or a configured sentinel such as
//     "999.99" is absent, never zero
//   - A binding energy >= 0 is dropped and counted in Result.Rejected
//   - Separation energies below the low limit are dropped and counted in
//     Result.Filtered
//
// For every read, Lines == len(Records) + Skipped.
//
// The reader emits raw values only. Overlaps between sources are resolved
// by the store and derive packages.
package reader
