package nuclide

import (
	"fmt"
	"strings"
)

// Nuclide identifies a nucleus by proton and neutron count.
type Nuclide struct {
	Z int `json:"z"`
	N int `json:"n"`
}

// A returns the mass number.
func (n Nuclide) A() int {
	return n.Z + n.N
}

// EvenEven reports whether both Z and N are even.
func (n Nuclide) EvenEven() bool {
	return n.Z%2 == 0 && n.N%2 == 0
}

// Ratio returns N/Z. Returns 0 for Z == 0.
func (n Nuclide) Ratio() float64 {
	if n.Z == 0 {
		return 0
	}
	return float64(n.N) / float64(n.Z)
}

func (n Nuclide) String() string {
	return fmt.Sprintf("Z=%d,N=%d", n.Z, n.N)
}

// Quantity is one of the tabulated physical quantities, all in MeV.
type Quantity int

const (
	BindingEnergy Quantity = iota
	OneNeutronSeparation
	TwoNeutronSeparation
	OneProtonSeparation
	TwoProtonSeparation
)

// Quantities lists every quantity in canonical order.
var Quantities = []Quantity{
	BindingEnergy,
	OneNeutronSeparation,
	TwoNeutronSeparation,
	OneProtonSeparation,
	TwoProtonSeparation,
}

// SeparationQuantities lists the four separation-energy flavors.
var SeparationQuantities = []Quantity{
	OneNeutronSeparation,
	TwoNeutronSeparation,
	OneProtonSeparation,
	TwoProtonSeparation,
}

var quantityNames = map[Quantity]string{
	BindingEnergy:        "BE",
	OneNeutronSeparation: "S1n",
	TwoNeutronSeparation: "S2n",
	OneProtonSeparation:  "S1p",
	TwoProtonSeparation:  "S2p",
}

func (q Quantity) String() string {
	if s, ok := quantityNames[q]; ok {
		return s
	}
	return fmt.Sprintf("Quantity(%d)", int(q))
}

// IsSeparation reports whether q is a separation energy.
func (q Quantity) IsSeparation() bool {
	return q != BindingEnergy && q.Valid()
}

// Valid reports whether q is a known quantity.
func (q Quantity) Valid() bool {
	_, ok := quantityNames[q]
	return ok
}

// Neighbor returns the offsets (dZ, dN) of the lighter nucleus that q is a
// finite difference against. BindingEnergy has no neighbor.
func (q Quantity) Neighbor() (dz, dn int) {
	switch q {
	case OneNeutronSeparation:
		return 0, 1
	case TwoNeutronSeparation:
		return 0, 2
	case OneProtonSeparation:
		return 1, 0
	case TwoProtonSeparation:
		return 2, 0
	}
	return 0, 0
}

// ParseQuantity resolves a quantity name such as "S2n" or "BE".
func ParseQuantity(s string) (Quantity, error) {
	for q, name := range quantityNames {
		if strings.EqualFold(name, s) {
			return q, nil
		}
	}
	switch strings.ToLower(s) {
	case "binding", "binding_energy", "bindingenergy":
		return BindingEnergy, nil
	}
	return 0, fmt.Errorf("unknown quantity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (q Quantity) MarshalText() ([]byte, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("invalid quantity %d", int(q))
	}
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quantity) UnmarshalText(b []byte) error {
	parsed, err := ParseQuantity(string(b))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
