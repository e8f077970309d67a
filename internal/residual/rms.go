package residual

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/nucmass/internal/dripline"
	"github.com/roach88/nucmass/internal/nuclide"
)

// DivisionUndefinedError is returned when an RMS has no contributing
// residuals.
type DivisionUndefinedError struct {
	Pair   Pair
	Subset string
}

func (e *DivisionUndefinedError) Error() string {
	return fmt.Sprintf("rms %s over %q: no residuals", e.Pair, e.Subset)
}

// IsDivisionUndefined reports whether err is a DivisionUndefinedError.
func IsDivisionUndefined(err error) bool {
	var target *DivisionUndefinedError
	return errors.As(err, &target)
}

// Stat is one RMS statistic.
type Stat struct {
	Pair   Pair    `json:"pair"`
	Subset string  `json:"subset"`
	Value  float64 `json:"rms"`
	Count  int     `json:"count"`
}

// RMS returns sqrt(sum(r^2)/count) over the residuals of one pair that
// subset admits.
func (s *Set) RMS(theory, reference nuclide.Source, q nuclide.Quantity, subset Subset) (Stat, error) {
	pair := Pair{Theory: theory, Reference: reference, Quantity: q}
	var sum float64
	count := 0
	for _, r := range s.byPair[pair] {
		if !subset.Match(r.Key) {
			continue
		}
		sum += r.Value * r.Value
		count++
	}
	if count == 0 {
		return Stat{}, &DivisionUndefinedError{Pair: pair, Subset: subset.Name}
	}
	return Stat{
		Pair:   pair,
		Subset: subset.Name,
		Value:  math.Sqrt(sum / float64(count)),
		Count:  count,
	}, nil
}

// Point is one member of an isotopic chain series.
type Point struct {
	N        int     `json:"n"`
	Residual float64 `json:"residual"`
}

// Series returns the residuals of chain z between the theory's proton and
// neutron driplines, in steps of two neutrons. Members without a residual
// or outside subset are left out. ok is false when the theory has no
// dripline window for z.
func (s *Set) Series(table *dripline.Table, z int, theory, reference nuclide.Source, q nuclide.Quantity, subset Subset) (points []Point, ok bool) {
	lo, hi, ok := table.Window(z, theory)
	if !ok {
		return nil, false
	}
	for n := lo; n <= hi; n += 2 {
		k := Key{N: n, Z: z, Theory: theory, Reference: reference, Quantity: q}
		v, found := s.index[k]
		if !found || !subset.Match(k) {
			continue
		}
		points = append(points, Point{N: n, Residual: v})
	}
	return points, true
}
