package residual

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/store"
)

// Subset selects which residuals take part in an RMS or a series. The
// name is recorded alongside every statistic.
type Subset struct {
	Name  string
	match func(Key) bool
}

// NewSubset wraps a predicate.
func NewSubset(name string, match func(Key) bool) Subset {
	return Subset{Name: name, match: match}
}

// Match reports whether k belongs to the subset. The zero Subset matches
// everything.
func (s Subset) Match(k Key) bool {
	if s.match == nil {
		return true
	}
	return s.match(k)
}

func (s Subset) String() string {
	return s.Name
}

var (
	// All admits every residual.
	All = NewSubset("all", func(Key) bool { return true })

	// EvenEven admits nuclides with even Z and even N.
	EvenEven = NewSubset("even-even", func(k Key) bool { return k.Nuclide().EvenEven() })
)

// Octupole admits nuclides whose theory table, or its octupole
// counterpart, carries a deformation inside t.
func Octupole(st *store.Store, t store.OctupoleThresholds) Subset {
	return NewSubset("octupole", func(k Key) bool {
		return st.OctupoleFlag(store.Key{N: k.N, Z: k.Z, Source: k.Theory}, t)
	})
}

// NewSince admits nuclides whose experimental value for the residual's
// quantity is absent from the earlier source.
func NewSince(st *store.Store, earlier nuclide.Source) Subset {
	return NewSubset(newSincePrefix+earlier.String(), func(k Key) bool {
		return !st.Has(k.Quantity, store.Key{N: k.N, Z: k.Z, Source: earlier})
	})
}

// And admits residuals matched by every subset.
func And(subsets ...Subset) Subset {
	names := make([]string, len(subsets))
	for i, s := range subsets {
		names[i] = s.Name
	}
	return NewSubset(strings.Join(names, "+"), func(k Key) bool {
		for _, s := range subsets {
			if !s.Match(k) {
				return false
			}
		}
		return true
	})
}

// Except admits everything but the listed nuclides.
func Except(nuclides ...nuclide.Nuclide) Subset {
	skip := make(map[nuclide.Nuclide]bool, len(nuclides))
	for _, n := range nuclides {
		skip[n] = true
	}
	return NewSubset(fmt.Sprintf("except-%d", len(nuclides)), func(k Key) bool {
		return !skip[k.Nuclide()]
	})
}

// ErrUnknownSubset is returned for a subset name ParseSubset cannot resolve.
var ErrUnknownSubset = errors.New("unknown subset")

const newSincePrefix = "new-since-"

// CheckSubsetName reports whether ParseSubset accepts name. It needs no
// store, so catalogs can be checked before any table is read.
func CheckSubsetName(name string) error {
	switch name {
	case "", EvenEven.Name, All.Name, "octupole":
		return nil
	}
	rest, ok := strings.CutPrefix(name, newSincePrefix)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownSubset, name)
	}
	src, err := nuclide.ParseSource(rest)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrUnknownSubset, name, err)
	}
	if !src.IsExperiment() {
		return fmt.Errorf("%w %q: %s is not experimental", ErrUnknownSubset, name, src)
	}
	return nil
}

// ParseSubset resolves a subset by name: "all", "even-even", "octupole"
// (even-even and octupole-relevant) or "new-since-<source>".
func ParseSubset(name string, st *store.Store, t store.OctupoleThresholds) (Subset, error) {
	if err := CheckSubsetName(name); err != nil {
		return Subset{}, err
	}
	switch name {
	case "", EvenEven.Name:
		return EvenEven, nil
	case All.Name:
		return All, nil
	case "octupole":
		s := And(EvenEven, Octupole(st, t))
		s.Name = "octupole"
		return s, nil
	}
	src, _ := nuclide.ParseSource(strings.TrimPrefix(name, newSincePrefix))
	return NewSince(st, src), nil
}

// KnownBadS2n lists S2n entries known to be spurious: numerical
// artefacts in three theory tables and AME2003 values superseded by
// later evaluations. Pass them to Store.Exclude before computing
// residuals.
func KnownBadS2n() []store.Key {
	return []store.Key{
		{N: 98, Z: 82, Source: nuclide.SkMStar},
		{N: 104, Z: 84, Source: nuclide.SkP},
		{N: 104, Z: 84, Source: nuclide.UNEDF0},
		{N: 8, Z: 2, Source: nuclide.AME2003},
		{N: 16, Z: 8, Source: nuclide.AME2003},
		{N: 32, Z: 20, Source: nuclide.AME2003},
		{N: 64, Z: 38, Source: nuclide.AME2003},
		{N: 84, Z: 50, Source: nuclide.AME2003},
		{N: 22, Z: 12, Source: nuclide.AME2003},
	}
}
