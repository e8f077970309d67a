// Package dripline locates the proton and neutron driplines of each
// even-Z isotopic chain in a frozen store.
//
// Only even-N members are scanned, in steps of two. The neutron side scans
// N upward and records the first N where S2n(N) >= cutoff, S2n(N+2) <=
// cutoff and N/Z > ratio. The proton side scans N downward and records the
// first N where S2p(N) >= cutoff, S2p(N-2) <= cutoff and N/Z < ratio. A
// chain with no such crossing falls back to the edge of its binding-energy
// data: the lightest even N on the proton side, the heaviest on the
// neutron side.
package dripline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/store"
)

// Side selects which dripline a boundary belongs to.
type Side int

const (
	Proton Side = iota
	Neutron
)

func (s Side) String() string {
	switch s {
	case Proton:
		return "proton"
	case Neutron:
		return "neutron"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(b []byte) error {
	side, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// ParseSide is the inverse of Side.String.
func ParseSide(name string) (Side, error) {
	switch name {
	case Proton.String():
		return Proton, nil
	case Neutron.String():
		return Neutron, nil
	}
	return 0, fmt.Errorf("unknown dripline side %q", name)
}

// Config holds the scan knobs.
type Config struct {
	// Cutoff is the separation energy (MeV) at which a nucleus counts as
	// unbound. Slightly negative, so statistical extrapolations that hover
	// near zero are not cut early.
	Cutoff float64 `json:"cutoff" yaml:"cutoff"`
	// Ratio is the N/Z that separates the neutron-rich from the
	// proton-rich side of a chain.
	Ratio float64 `json:"ratio" yaml:"ratio"`
}

// DefaultConfig returns cutoff -1 MeV and ratio 1.5.
func DefaultConfig() Config {
	return Config{Cutoff: -1, Ratio: 1.5}
}

// Boundary is one dripline point.
type Boundary struct {
	Z      int            `json:"z"`
	Source nuclide.Source `json:"source"`
	Side   Side           `json:"side"`
	N      int            `json:"n"`
	// Fallback is set when no crossing was found and N is the edge of the
	// available data.
	Fallback bool `json:"fallback"`
}

type boundaryKey struct {
	z    int
	src  nuclide.Source
	side Side
}

// Table holds one boundary per (Z, source, side). It is immutable once
// Locate returns.
type Table struct {
	boundaries map[boundaryKey]Boundary
}

// Boundary returns the dripline N of chain z in src on side.
func (t *Table) Boundary(z int, src nuclide.Source, side Side) (Boundary, bool) {
	b, ok := t.boundaries[boundaryKey{z: z, src: src, side: side}]
	return b, ok
}

// Window returns the proton- and neutron-side N of chain z in src. ok is
// false unless both are known.
func (t *Table) Window(z int, src nuclide.Source) (lo, hi int, ok bool) {
	p, okP := t.Boundary(z, src, Proton)
	n, okN := t.Boundary(z, src, Neutron)
	if !okP || !okN {
		return 0, 0, false
	}
	return p.N, n.N, true
}

// Len returns the number of boundaries.
func (t *Table) Len() int {
	return len(t.boundaries)
}

// Boundaries returns every boundary sorted by source, Z, then side.
func (t *Table) Boundaries() []Boundary {
	out := make([]Boundary, 0, len(t.boundaries))
	for _, b := range t.boundaries {
		out = append(out, b)
	}
	order := make(map[nuclide.Source]int)
	for i, src := range nuclide.All() {
		order[src] = i
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Source != b.Source {
			return order[a.Source] < order[b.Source]
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.Side < b.Side
	})
	return out
}

// Locate scans every even-Z chain of each source. Sources are scanned
// concurrently; st must not be written while Locate runs.
func Locate(ctx context.Context, st *store.Store, sources []nuclide.Source, cfg Config) (*Table, error) {
	t := &Table{boundaries: make(map[boundaryKey]Boundary)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			found, err := locateSource(gctx, st, src, cfg)
			if err != nil {
				return fmt.Errorf("dripline %s: %w", src, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, b := range found {
				t.boundaries[boundaryKey{z: b.Z, src: b.Source, side: b.Side}] = b
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}

// chain is the even-N data of one isotopic chain.
type chain struct {
	s2n, s2p map[int]float64
	be       []int
	maxN     int
}

func collect(st *store.Store, src nuclide.Source) map[int]*chain {
	chains := make(map[int]*chain)
	get := func(z int) *chain {
		c, ok := chains[z]
		if !ok {
			c = &chain{s2n: make(map[int]float64), s2p: make(map[int]float64)}
			chains[z] = c
		}
		return c
	}
	use := func(k store.Key) bool {
		return k.Z >= 2 && k.Z%2 == 0 && k.N >= 2 && k.N%2 == 0
	}
	for _, k := range st.KeysFor(nuclide.TwoNeutronSeparation, src) {
		if use(k) {
			v, _ := st.Get(nuclide.TwoNeutronSeparation, k)
			get(k.Z).s2n[k.N] = v
		}
	}
	for _, k := range st.KeysFor(nuclide.TwoProtonSeparation, src) {
		if use(k) {
			v, _ := st.Get(nuclide.TwoProtonSeparation, k)
			get(k.Z).s2p[k.N] = v
		}
	}
	// KeysFor sorts by Z then N, so be is ascending
	for _, k := range st.KeysFor(nuclide.BindingEnergy, src) {
		if use(k) {
			c := get(k.Z)
			c.be = append(c.be, k.N)
		}
	}
	for _, c := range chains {
		for n := range c.s2n {
			c.maxN = max(c.maxN, n)
		}
		for n := range c.s2p {
			c.maxN = max(c.maxN, n)
		}
		if len(c.be) > 0 {
			c.maxN = max(c.maxN, c.be[len(c.be)-1])
		}
	}
	return chains
}

func locateSource(ctx context.Context, st *store.Store, src nuclide.Source, cfg Config) ([]Boundary, error) {
	chains := collect(st, src)
	zs := make([]int, 0, len(chains))
	for z := range chains {
		zs = append(zs, z)
	}
	sort.Ints(zs)

	var out []Boundary
	for _, z := range zs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := chains[z]
		if b, ok := neutronSide(c, z, cfg); ok {
			out = append(out, Boundary{Z: z, Source: src, Side: Neutron, N: b})
		} else if len(c.be) > 0 {
			out = append(out, Boundary{Z: z, Source: src, Side: Neutron, N: c.be[len(c.be)-1], Fallback: true})
		}
		if b, ok := protonSide(c, z, cfg); ok {
			out = append(out, Boundary{Z: z, Source: src, Side: Proton, N: b})
		} else if len(c.be) > 0 {
			out = append(out, Boundary{Z: z, Source: src, Side: Proton, N: c.be[0], Fallback: true})
		}
	}
	return out, nil
}

func neutronSide(c *chain, z int, cfg Config) (int, bool) {
	for n := 2; n <= c.maxN; n += 2 {
		here, ok1 := c.s2n[n]
		next, ok2 := c.s2n[n+2]
		if !ok1 || !ok2 {
			continue
		}
		if here >= cfg.Cutoff && next <= cfg.Cutoff && float64(n)/float64(z) > cfg.Ratio {
			return n, true
		}
	}
	return 0, false
}

func protonSide(c *chain, z int, cfg Config) (int, bool) {
	for n := c.maxN; n >= 2; n -= 2 {
		here, ok1 := c.s2p[n]
		prev, ok2 := c.s2p[n-2]
		if !ok1 || !ok2 {
			continue
		}
		if here >= cfg.Cutoff && prev <= cfg.Cutoff && float64(n)/float64(z) < cfg.Ratio {
			return n, true
		}
	}
	return 0, false
}
