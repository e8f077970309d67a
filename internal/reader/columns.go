package reader

import (
	"fmt"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/units"
)

// NoColumn marks an unused column index.
const NoColumn = -1

// NoRounding leaves parsed values at full precision.
const NoRounding = -1

// Column maps one field to a quantity.
type Column struct {
	Quantity nuclide.Quantity
	Index    int
	// ErrIndex is the uncertainty field, or NoColumn. The uncertainty is
	// only read when the value itself is present.
	ErrIndex int
	// Scale multiplies value and uncertainty (e.g. units.KeV). Zero means 1.
	Scale float64
	// Negate flips the sign of the value, for tables that tabulate
	// binding energy as a positive number.
	Negate bool
	// Digits rounds the value after scaling, or NoRounding.
	Digits int
	// Sentinels are literal field texts that mean "no value".
	Sentinels []string
}

// MassExcessColumn converts a mass-excess field into a binding energy.
type MassExcessColumn struct {
	Index    int
	ErrIndex int
	// Constants must share the mass-excess unit.
	Constants units.Constants
	// Scale converts the resulting energy to MeV (units.KeV for keV tables).
	Scale  float64
	Digits int
}

// ColumnMap describes one input format family.
type ColumnMap struct {
	Name string
	// Delimiter splits fields. Empty means runs of whitespace.
	Delimiter string
	Z         int
	// Exactly one of N and A is a column; the other is NoColumn.
	N int
	A int
	// IntegerIDs requires Z/N/A fields to be plain integers. Otherwise a
	// float within IDEpsilon of an integer is accepted.
	IntegerIDs bool
	Values     []Column
	MassExcess *MassExcessColumn
	// Beta2 and Beta3 are deformation fields, or NoColumn.
	Beta2 int
	Beta3 int
}

// Validate checks the map for contradictions.
func (m ColumnMap) Validate() error {
	if m.Z < 0 {
		return fmt.Errorf("column map %q: Z column required", m.Name)
	}
	if (m.N < 0) == (m.A < 0) {
		return fmt.Errorf("column map %q: exactly one of N or A column required", m.Name)
	}
	if (m.Beta2 < 0) != (m.Beta3 < 0) {
		return fmt.Errorf("column map %q: beta2 and beta3 must be set together", m.Name)
	}
	seen := make(map[nuclide.Quantity]bool)
	for _, c := range m.Values {
		if !c.Quantity.Valid() {
			return fmt.Errorf("column map %q: invalid quantity %d", m.Name, int(c.Quantity))
		}
		if c.Index < 0 {
			return fmt.Errorf("column map %q: %s column index required", m.Name, c.Quantity)
		}
		if seen[c.Quantity] {
			return fmt.Errorf("column map %q: %s mapped twice", m.Name, c.Quantity)
		}
		seen[c.Quantity] = true
	}
	if m.MassExcess != nil {
		if seen[nuclide.BindingEnergy] {
			return fmt.Errorf("column map %q: both binding energy and mass excess columns set", m.Name)
		}
		if m.MassExcess.Index < 0 {
			return fmt.Errorf("column map %q: mass excess column index required", m.Name)
		}
		if !m.MassExcess.Constants.Valid() {
			return fmt.Errorf("column map %q: mass excess constants must be positive", m.Name)
		}
	}
	return nil
}

// Quantities lists the quantities a read with this map can produce.
func (m ColumnMap) Quantities() []nuclide.Quantity {
	var out []nuclide.Quantity
	if m.MassExcess != nil {
		out = append(out, nuclide.BindingEnergy)
	}
	for _, c := range m.Values {
		out = append(out, c.Quantity)
	}
	return out
}

// width is the minimum number of fields a line must have.
func (m ColumnMap) width() int {
	w := maxInt(m.Z, m.N, m.A, m.Beta2, m.Beta3)
	for _, c := range m.Values {
		w = maxInt(w, c.Index, c.ErrIndex)
	}
	if me := m.MassExcess; me != nil {
		w = maxInt(w, me.Index, me.ErrIndex)
	}
	return w + 1
}

func maxInt(first int, rest ...int) int {
	m := first
	for _, v := range rest {
		if v > m {
			m = v
		}
	}
	return m
}

func scaleOf(s float64) float64 {
	if s == 0 {
		return 1
	}
	return s
}
