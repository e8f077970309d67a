package store

import (
	"fmt"
	"math"
)

// Deformation is the ground-state (beta2, beta3) of one nuclide in one
// deformation-aware table.
type Deformation struct {
	Beta2 float64 `json:"beta2"`
	Beta3 float64 `json:"beta3"`
}

// OctupoleThresholds are the magnitude cuts defining an octupole-relevant
// nuclide.
type OctupoleThresholds struct {
	Beta3Min float64 `json:"beta3_min" yaml:"beta3_min"`
	Beta3Max float64 `json:"beta3_max" yaml:"beta3_max"`
	Beta2Max float64 `json:"beta2_max" yaml:"beta2_max"`
}

// DefaultOctupoleThresholds accept every nuclide that has a deformation.
var DefaultOctupoleThresholds = OctupoleThresholds{
	Beta3Min: -1,
	Beta3Max: 1000,
	Beta2Max: 1000,
}

// Relevant reports whether |beta3| lies in [Beta3Min, Beta3Max] and
// |beta2| <= Beta2Max.
func (t OctupoleThresholds) Relevant(d Deformation) bool {
	b3 := math.Abs(d.Beta3)
	return b3 >= t.Beta3Min && b3 <= t.Beta3Max && math.Abs(d.Beta2) <= t.Beta2Max
}

// PutDeformation records the deformation of k. An identical repeat is a
// no-op; a differing one wraps ErrConflictingDeformation.
func (s *Store) PutDeformation(k Key, d Deformation) error {
	if s.frozen {
		return ErrFrozen
	}
	if !k.valid() {
		return fmt.Errorf("put deformation %s: %w", k, ErrInvalidKey)
	}
	if old, ok := s.deformations[k]; ok && old != d {
		return fmt.Errorf("put deformation %s: have %+v, got %+v: %w", k, old, d, ErrConflictingDeformation)
	}
	s.deformations[k] = d
	return nil
}

// Deformation returns the deformation recorded for k.
func (s *Store) Deformation(k Key) (Deformation, bool) {
	d, ok := s.deformations[k]
	return d, ok
}

// DeformationKeys returns every key with a deformation, sorted.
func (s *Store) DeformationKeys() []Key {
	out := make([]Key, 0, len(s.deformations))
	for k := range s.deformations {
		out = append(out, k)
	}
	SortKeys(out)
	return out
}

// OctupoleFlag reports whether k is octupole relevant under t. A legacy
// table carries no deformation of its own, so its flag is taken from the
// octupole table of the same functional.
func (s *Store) OctupoleFlag(k Key, t OctupoleThresholds) bool {
	if d, ok := s.deformations[k]; ok {
		return t.Relevant(d)
	}
	if oct, ok := k.Source.OctupoleOf(); ok {
		if d, ok := s.deformations[k.In(oct)]; ok {
			return t.Relevant(d)
		}
	}
	return false
}
