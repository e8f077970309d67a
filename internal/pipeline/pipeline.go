// Package pipeline runs one reconciliation pass over a catalog: read every
// table, derive what is missing, freeze, apply exclusions, then locate
// driplines and compute residual statistics.
//
// A run is sequential up to the freeze. After the freeze the store is only
// read, and the dripline and residual stages fan out across sources.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/nucmass/internal/catalog"
	"github.com/roach88/nucmass/internal/coverage"
	"github.com/roach88/nucmass/internal/derive"
	"github.com/roach88/nucmass/internal/dripline"
	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/reader"
	"github.com/roach88/nucmass/internal/residual"
	"github.com/roach88/nucmass/internal/store"
)

// SourceReport summarises the read of one catalog entry.
type SourceReport struct {
	Source   nuclide.Source `json:"source"`
	Path     string         `json:"path"`
	Format   string         `json:"format"`
	Lines    int            `json:"lines"`
	Records  int            `json:"records"`
	Skipped  int            `json:"skipped"`
	Rejected int            `json:"rejected"`
	Filtered int            `json:"filtered"`
}

// Result is everything one run produced.
type Result struct {
	Sources  []SourceReport `json:"sources"`
	Fill     derive.Stats   `json:"fill"`
	Campaign derive.Stats   `json:"campaign"`
	Excluded int            `json:"excluded"`

	Store     *store.Store     `json:"-"`
	Driplines *dripline.Table  `json:"-"`
	Residuals *residual.Set    `json:"-"`
	Subset    residual.Subset  `json:"-"`
	RMS       []residual.Stat  `json:"rms"`
	// Undefined lists the pairs whose subset held no residuals.
	Undefined []residual.Pair    `json:"undefined"`
	Coverage  []*coverage.Report `json:"coverage"`
}

// Runner executes runs.
type Runner struct {
	logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// New returns a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every stage in order. A duplicate key or a read error stops
// the run; an RMS with no residuals is recorded in Result.Undefined.
func (r *Runner) Run(ctx context.Context, c *catalog.Catalog) (*Result, error) {
	res := &Result{Store: store.New()}
	st := res.Store

	for _, e := range c.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, err := r.load(st, e, c)
		if err != nil {
			return nil, err
		}
		res.Sources = append(res.Sources, rep)
	}

	cfg := c.DeriveConfig()
	for _, src := range c.SourceList() {
		qs := fillQuantities(c, src)
		if len(qs) == 0 {
			continue
		}
		stats, err := derive.FillFromBinding(st, src, qs, cfg)
		res.Fill.Add(stats)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", src, err)
		}
		r.logger.Debug("separation energies filled", "source", src, "derived", stats.Derived, "below_limit", stats.BelowLimit)
	}

	if campaigns := c.Campaigns(); len(campaigns) > 0 {
		stats, err := derive.ReconcileCampaigns(st, campaigns, cfg)
		res.Campaign = stats
		if err != nil {
			return nil, err
		}
		r.logger.Info("campaigns reconciled",
			"campaigns", len(campaigns),
			"derived", stats.Derived,
			"fallback", stats.Fallback,
			"removed", stats.Removed)
	}

	st.Freeze()

	for q, keys := range c.ExclusionKeys() {
		res.Excluded += st.Exclude(q, keys...)
	}
	if res.Excluded > 0 {
		r.logger.Info("exclusions applied", "removed", res.Excluded)
	}

	table, err := dripline.Locate(ctx, st, c.DriplineSources(), c.DriplineConfig())
	if err != nil {
		return nil, err
	}
	res.Driplines = table
	r.logger.Info("driplines located", "sources", len(c.DriplineSources()), "boundaries", table.Len())

	set, err := residual.Compute(ctx, st, c.ResidualTheories(), c.Reference)
	if err != nil {
		return nil, err
	}
	res.Residuals = set

	subset, err := residual.ParseSubset(c.Subset, st, c.OctupoleThresholds())
	if err != nil {
		return nil, err
	}
	res.Subset = subset
	for _, p := range set.Pairs() {
		stat, err := set.RMS(p.Theory, p.Reference, p.Quantity, subset)
		if residual.IsDivisionUndefined(err) {
			r.logger.Warn("rms undefined", "pair", p.String(), "subset", subset.Name)
			res.Undefined = append(res.Undefined, p)
			continue
		}
		if err != nil {
			return nil, err
		}
		res.RMS = append(res.RMS, stat)
	}
	r.logger.Info("residuals computed", "residuals", set.Len(), "rms", len(res.RMS), "undefined", len(res.Undefined))

	res.Coverage, err = compareVintages(st, c)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Run executes one pass with the default logger.
func Run(ctx context.Context, c *catalog.Catalog) (*Result, error) {
	return New().Run(ctx, c)
}

func (r *Runner) load(st *store.Store, e catalog.Entry, c *catalog.Catalog) (SourceReport, error) {
	rep := SourceReport{Source: e.Source, Path: e.Path, Format: e.Format}
	m, err := reader.Lookup(e.Format)
	if err != nil {
		return rep, fmt.Errorf("source %s: %w", e.Source, err)
	}
	f, err := os.Open(e.Path)
	if err != nil {
		return rep, fmt.Errorf("source %s: %w", e.Source, err)
	}
	defer f.Close()

	var opts []reader.Option
	if c.LowLimit != nil {
		opts = append(opts, reader.WithLowLimit(*c.LowLimit))
	}
	out, err := reader.Read(f, m, opts...)
	if err != nil {
		return rep, fmt.Errorf("source %s: %w", e.Source, err)
	}
	rep.Lines = out.Lines
	rep.Records = len(out.Records)
	rep.Skipped = out.Skipped
	rep.Rejected = out.Rejected
	rep.Filtered = out.Filtered

	if err := putRecords(st, e.Source, out.Records); err != nil {
		return rep, fmt.Errorf("source %s: %w", e.Source, err)
	}
	r.logger.Info("source read",
		"source", e.Source,
		"format", e.Format,
		"lines", rep.Lines,
		"records", rep.Records,
		"skipped", rep.Skipped,
		"rejected", rep.Rejected)
	for reason, n := range out.SkipReasons {
		r.logger.Debug("lines skipped", "source", e.Source, "reason", string(reason), "count", n)
	}
	return rep, nil
}

func putRecords(st *store.Store, src nuclide.Source, records []reader.Record) error {
	for _, rec := range records {
		k := store.KeyOf(rec.Nuclide, src)
		// canonical order keeps the first conflicting quantity stable
		for _, q := range nuclide.Quantities {
			v, ok := rec.Values[q]
			if !ok {
				continue
			}
			var err error
			if u, hasErr := rec.Errors[q]; hasErr {
				err = st.PutWithUncertainty(q, k, v, u)
			} else {
				err = st.Put(q, k, v)
			}
			if err != nil {
				return fmt.Errorf("line %d: %w", rec.Line, err)
			}
		}
		if rec.Deformation != nil {
			d := store.Deformation{Beta2: rec.Deformation.Beta2, Beta3: rec.Deformation.Beta3}
			if err := st.PutDeformation(k, d); err != nil {
				return fmt.Errorf("line %d: %w", rec.Line, err)
			}
		}
	}
	return nil
}

// fillQuantities merges the derive lists of every entry of src.
func fillQuantities(c *catalog.Catalog, src nuclide.Source) []nuclide.Quantity {
	want := make(map[nuclide.Quantity]bool)
	for _, e := range c.Sources {
		if e.Source != src {
			continue
		}
		for _, q := range e.Derive {
			want[q] = true
		}
	}
	var out []nuclide.Quantity
	for _, q := range nuclide.SeparationQuantities {
		if want[q] {
			out = append(out, q)
		}
	}
	return out
}

// compareVintages reports the nuclides each experimental source adds over
// the one before it: even-even for two-nucleon separations, every parity
// for S1n.
func compareVintages(st *store.Store, c *catalog.Catalog) ([]*coverage.Report, error) {
	var exp []nuclide.Source
	for _, src := range c.SourceList() {
		if src.IsExperiment() {
			exp = append(exp, src)
		}
	}
	exp = nuclide.ByVintage(exp)

	var out []*coverage.Report
	for i := 1; i < len(exp); i++ {
		earlier, later := exp[i-1], exp[i]
		for _, q := range []nuclide.Quantity{nuclide.TwoNeutronSeparation, nuclide.TwoProtonSeparation} {
			rep, err := coverage.Compare(st, q, earlier, later, coverage.EvenEven)
			if err != nil {
				return nil, err
			}
			out = append(out, rep)
		}
		rep, err := coverage.Compare(st, nuclide.OneNeutronSeparation, earlier, later)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}
