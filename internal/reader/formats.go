package reader

import (
	"fmt"
	"sort"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/units"
)

// Registered format names.
const (
	FormatMassExplorer   = "massexplorer"
	FormatRMF            = "rmf"
	FormatAMESeparation2 = "ame-s2"
	FormatAMESeparation1 = "ame-s1"
	FormatAMEMassExcess  = "ame-mass-excess"
	FormatJYFLTRAP       = "jyfltrap"
	FormatCampaign2018   = "campaign-2018"
	FormatFRDM           = "frdm"
	FormatHFB24          = "hfb24"
	FormatOctupole       = "octupole"
)

func col(q nuclide.Quantity, index int) Column {
	return Column{Quantity: q, Index: index, ErrIndex: NoColumn, Digits: NoRounding}
}

func colErr(q nuclide.Quantity, index, errIndex int) Column {
	c := col(q, index)
	c.ErrIndex = errIndex
	return c
}

// keV mass-excess tables converted with the AME2012-era constants and
// rounded to the nearest eV.
func keVMassExcess(index, errIndex int) *MassExcessColumn {
	return &MassExcessColumn{
		Index:     index,
		ErrIndex:  errIndex,
		Constants: units.AME2012keV,
		Scale:     units.KeV,
		Digits:    6,
	}
}

// Formats holds the column map of every supported input family.
var Formats = map[string]ColumnMap{
	// Mass Explorer Skyrme tables: Z N ... BE S1p S2p S1n S2n.
	FormatMassExplorer: {
		Name: FormatMassExplorer, Z: 1, N: 2, A: NoColumn, IntegerIDs: true,
		Beta2: NoColumn, Beta3: NoColumn,
		Values: []Column{
			col(nuclide.TwoNeutronSeparation, 8),
			col(nuclide.TwoProtonSeparation, 6),
			col(nuclide.OneNeutronSeparation, 7),
			col(nuclide.OneProtonSeparation, 5),
			col(nuclide.BindingEnergy, 4),
		},
	},
	// RMF even-even tables. Odd entries carry wrong pairing gaps and the
	// tables have no usable S1n/S1p.
	FormatRMF: {
		Name: FormatRMF, Z: 0, N: 1, A: NoColumn,
		Beta2: NoColumn, Beta3: NoColumn,
		Values: []Column{
			col(nuclide.TwoNeutronSeparation, 6),
			col(nuclide.TwoProtonSeparation, 4),
		},
	},
	FormatAMESeparation2: {
		Name: FormatAMESeparation2, Z: 0, N: 1, A: NoColumn,
		Beta2: NoColumn, Beta3: NoColumn,
		Values: []Column{
			colErr(nuclide.TwoNeutronSeparation, 2, 3),
			colErr(nuclide.TwoProtonSeparation, 4, 5),
		},
	},
	FormatAMESeparation1: {
		Name: FormatAMESeparation1, Z: 0, N: 1, A: NoColumn,
		Beta2: NoColumn, Beta3: NoColumn,
		Values: []Column{
			colErr(nuclide.OneNeutronSeparation, 2, 3),
			colErr(nuclide.OneProtonSeparation, 4, 5),
		},
	},
	// Tab separated, N before Z, mass excess in keV.
	FormatAMEMassExcess: {
		Name: FormatAMEMassExcess, Delimiter: "\t", Z: 1, N: 0, A: NoColumn,
		Beta2: NoColumn, Beta3: NoColumn,
		MassExcess: keVMassExcess(5, 6),
	},
	FormatJYFLTRAP: {
		Name: FormatJYFLTRAP, Z: 0, N: 1, A: NoColumn,
		Beta2: NoColumn, Beta3: NoColumn,
		MassExcess: keVMassExcess(4, 5),
	},
	FormatCampaign2018: {
		Name: FormatCampaign2018, Z: 0, N: 1, A: NoColumn,
		Beta2: NoColumn, Beta3: NoColumn,
		MassExcess: keVMassExcess(2, 3),
	},
	// FRDM-2012 tabulates binding energy as a positive number.
	FormatFRDM: {
		Name: FormatFRDM, Z: 0, N: 1, A: NoColumn,
		Beta2: NoColumn, Beta3: NoColumn,
		Values: []Column{
			{Quantity: nuclide.BindingEnergy, Index: 13, ErrIndex: NoColumn, Negate: true, Digits: NoRounding},
		},
	},
	// HFB-24: Z A, MeV mass excess, S1n/S1p with 999.99 placeholders.
	FormatHFB24: {
		Name: FormatHFB24, Z: 0, N: NoColumn, A: 1,
		Beta2: NoColumn, Beta3: NoColumn,
		MassExcess: &MassExcessColumn{
			Index: 9, ErrIndex: NoColumn, Constants: units.RoundedMeV, Scale: 1, Digits: 2,
		},
		Values: []Column{
			{Quantity: nuclide.OneNeutronSeparation, Index: 6, ErrIndex: NoColumn, Digits: 2, Sentinels: []string{"999.99"}},
			{Quantity: nuclide.OneProtonSeparation, Index: 7, ErrIndex: NoColumn, Digits: 2, Sentinels: []string{"999.99"}},
		},
	},
	// HFBTHO octupole tables: Z N . BE beta2 beta3.
	FormatOctupole: {
		Name: FormatOctupole, Z: 0, N: 1, A: NoColumn, IntegerIDs: true,
		Beta2: 4, Beta3: 5,
		Values: []Column{
			col(nuclide.BindingEnergy, 3),
		},
	},
}

// Lookup returns the column map registered under name.
func Lookup(name string) (ColumnMap, error) {
	m, ok := Formats[name]
	if !ok {
		return ColumnMap{}, fmt.Errorf("unknown format %q (known: %v)", name, FormatNames())
	}
	return m, nil
}

// FormatNames returns the registered format names, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(Formats))
	for name := range Formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
