// Package residual compares theory tables against an experimental
// reference.
//
// A residual is experiment minus theory, rounded to 6 digits, for every
// quantity both tables have for the same nuclide. RMS statistics aggregate
// residuals over a named Subset of nuclides; an empty subset is an error,
// never NaN or zero.
package residual

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/store"
	"github.com/roach88/nucmass/internal/units"
)

// Digits is the rounding applied to every residual.
const Digits = 6

// ErrInvalidPair is returned when a theory is not a theory source or the
// reference is not experimental.
var ErrInvalidPair = errors.New("invalid theory/reference pair")

// Key identifies one residual.
type Key struct {
	N         int              `json:"n"`
	Z         int              `json:"z"`
	Theory    nuclide.Source   `json:"theory"`
	Reference nuclide.Source   `json:"reference"`
	Quantity  nuclide.Quantity `json:"quantity"`
}

// Nuclide returns the nucleus part of the key.
func (k Key) Nuclide() nuclide.Nuclide {
	return nuclide.Nuclide{Z: k.Z, N: k.N}
}

// Residual is one experiment-minus-theory difference.
type Residual struct {
	Key   Key     `json:"key"`
	Value float64 `json:"value"`
}

// Pair names one (theory, reference, quantity) comparison.
type Pair struct {
	Theory    nuclide.Source   `json:"theory"`
	Reference nuclide.Source   `json:"reference"`
	Quantity  nuclide.Quantity `json:"quantity"`
}

func (p Pair) String() string {
	return fmt.Sprintf("%s-%s/%s", p.Theory, p.Reference, p.Quantity)
}

func (k Key) pair() Pair {
	return Pair{Theory: k.Theory, Reference: k.Reference, Quantity: k.Quantity}
}

// Set holds computed residuals. It is immutable once Compute returns.
type Set struct {
	byPair map[Pair][]Residual
	index  map[Key]float64
}

// Get returns the residual for k.
func (s *Set) Get(k Key) (float64, bool) {
	v, ok := s.index[k]
	return v, ok
}

// Len returns the number of residuals.
func (s *Set) Len() int {
	return len(s.index)
}

// Residuals returns the residuals of one pair sorted by Z then N.
func (s *Set) Residuals(theory, reference nuclide.Source, q nuclide.Quantity) []Residual {
	return s.byPair[Pair{Theory: theory, Reference: reference, Quantity: q}]
}

// Pairs returns every pair with at least one residual, sorted by theory
// then quantity.
func (s *Set) Pairs() []Pair {
	out := make([]Pair, 0, len(s.byPair))
	for p := range s.byPair {
		out = append(out, p)
	}
	order := sourceOrder()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Theory != b.Theory {
			return order[a.Theory] < order[b.Theory]
		}
		if a.Reference != b.Reference {
			return order[a.Reference] < order[b.Reference]
		}
		return a.Quantity < b.Quantity
	})
	return out
}

func sourceOrder() map[nuclide.Source]int {
	order := make(map[nuclide.Source]int)
	for i, src := range nuclide.All() {
		order[src] = i
	}
	return order
}

// Compute builds the residuals of every theory against reference, for
// every quantity. Theories are processed concurrently; st must not be
// written while Compute runs.
func Compute(ctx context.Context, st *store.Store, theories []nuclide.Source, reference nuclide.Source) (*Set, error) {
	if !reference.IsExperiment() {
		return nil, fmt.Errorf("residual: reference %s: %w", reference, ErrInvalidPair)
	}
	for _, th := range theories {
		if !th.IsTheory() {
			return nil, fmt.Errorf("residual: theory %s: %w", th, ErrInvalidPair)
		}
	}

	set := &Set{
		byPair: make(map[Pair][]Residual),
		index:  make(map[Key]float64),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, th := range theories {
		th := th
		g.Go(func() error {
			found, err := computeTheory(gctx, st, th, reference)
			if err != nil {
				return fmt.Errorf("residual %s: %w", th, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, r := range found {
				if _, dup := set.index[r.Key]; dup {
					continue
				}
				set.index[r.Key] = r.Value
				set.byPair[r.Key.pair()] = append(set.byPair[r.Key.pair()], r)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

func computeTheory(ctx context.Context, st *store.Store, theory, reference nuclide.Source) ([]Residual, error) {
	var out []Residual
	for _, q := range nuclide.Quantities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// KeysFor sorts by Z then N, so each pair's slice comes out sorted
		for _, k := range st.KeysFor(q, theory) {
			exp, ok := st.Get(q, k.In(reference))
			if !ok {
				continue
			}
			th, _ := st.Get(q, k)
			out = append(out, Residual{
				Key: Key{
					N: k.N, Z: k.Z,
					Theory: theory, Reference: reference,
					Quantity: q,
				},
				Value: units.Round(exp-th, Digits),
			})
		}
	}
	return out, nil
}
