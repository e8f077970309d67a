package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/nucmass/internal/catalog"
	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/pipeline"
	"github.com/roach88/nucmass/internal/residual"
)

// ResidualsOptions holds flags for the residuals command.
type ResidualsOptions struct {
	*RootOptions
	Reference string
	Subset    string
	Theory    string
	Quantity  string
	Z         int
}

// SeriesReport is one isotopic chain of residuals.
type SeriesReport struct {
	Theory   nuclide.Source   `json:"theory"`
	Quantity nuclide.Quantity `json:"quantity"`
	Z        int              `json:"z"`
	// Window is false when the theory has no dripline window for Z.
	Window bool             `json:"window"`
	Points []residual.Point `json:"points"`
}

// ResidualsReport is the payload of the residuals command.
type ResidualsReport struct {
	Reference nuclide.Source  `json:"reference"`
	Subset    string          `json:"subset"`
	RMS       []residual.Stat `json:"rms"`
	Undefined []residual.Pair `json:"undefined"`
	Series    []SeriesReport  `json:"series,omitempty"`
}

// NewResidualsCommand creates the residuals command.
func NewResidualsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResidualsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "residuals <catalog>",
		Short: "Report theory-minus-experiment residuals and their RMS",
		Long: `Run the catalog and print the RMS of every theory's residuals
against the reference evaluation over a nuclide subset.

Subsets: even-even (default), all, octupole, new-since-<vintage>.
With --z the isotopic chain between the theory's driplines is printed too.

Example:
  nucmass residuals ./run.yaml
  nucmass residuals ./run.yaml --subset all --theory SLy4 --quantity S2n
  nucmass residuals ./run.yaml --subset new-since-AME2003 --z 20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResiduals(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Reference, "reference", "", "experimental source to compare against (default: catalog reference)")
	cmd.Flags().StringVar(&opts.Subset, "subset", "", "nuclide subset for the RMS (default: catalog subset)")
	cmd.Flags().StringVar(&opts.Theory, "theory", "", "only report this theory")
	cmd.Flags().StringVar(&opts.Quantity, "quantity", "", "only report this quantity (BE|S1n|S2n|S1p|S2p)")
	cmd.Flags().IntVar(&opts.Z, "z", 0, "print the isotopic chain of this proton number")

	return cmd
}

// residualFilter is the parsed --theory/--quantity pair.
type residualFilter struct {
	theory   nuclide.Source
	quantity nuclide.Quantity
	hasQ     bool
}

func (f residualFilter) admits(p residual.Pair) bool {
	if f.theory != nuclide.SourceUnknown && p.Theory != f.theory {
		return false
	}
	return !f.hasQ || p.Quantity == f.quantity
}

func (o *ResidualsOptions) parseFilter(formatter *OutputFormatter) (residualFilter, error) {
	var f residualFilter
	if o.Theory != "" {
		src, err := nuclide.ParseSource(o.Theory)
		if err == nil && !src.IsTheory() {
			err = fmt.Errorf("%s is not a theory", src)
		}
		if err != nil {
			return f, reportError(formatter, ExitCommandError, ErrCodeInvalidFlag, err.Error(), nil, err)
		}
		f.theory = src
	}
	if o.Quantity != "" {
		q, err := nuclide.ParseQuantity(o.Quantity)
		if err != nil {
			return f, reportError(formatter, ExitCommandError, ErrCodeInvalidFlag, err.Error(), nil, err)
		}
		f.quantity, f.hasQ = q, true
	}
	return f, nil
}

// override applies --reference and --subset to the loaded catalog.
func (o *ResidualsOptions) override(formatter *OutputFormatter) func(*catalog.Catalog) error {
	return func(c *catalog.Catalog) error {
		if o.Reference != "" {
			src, err := nuclide.ParseSource(o.Reference)
			if err != nil {
				return reportError(formatter, ExitCommandError, ErrCodeInvalidFlag, err.Error(), nil, err)
			}
			c.Reference = src
		}
		if o.Subset != "" {
			c.Subset = o.Subset
		}
		if err := c.Validate(); err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeInvalidFlag, err.Error(), nil, err)
		}
		return nil
	}
}

func runResiduals(opts *ResidualsOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	filter, err := opts.parseFilter(formatter)
	if err != nil {
		return err
	}
	c, res, err := loadAndReconcile(opts.RootOptions, cmd, path, opts.override(formatter))
	if err != nil {
		return err
	}

	report := ResidualsReport{
		Reference: c.Reference,
		Subset:    res.Subset.Name,
		RMS:       []residual.Stat{},
		Undefined: []residual.Pair{},
	}
	for _, st := range res.RMS {
		if filter.admits(st.Pair) {
			report.RMS = append(report.RMS, st)
		}
	}
	for _, p := range res.Undefined {
		if filter.admits(p) {
			report.Undefined = append(report.Undefined, p)
		}
	}

	// a single requested pair with nothing to average is an error
	if filter.theory != nuclide.SourceUnknown && filter.hasQ && len(report.RMS) == 0 {
		p := residual.Pair{Theory: filter.theory, Reference: c.Reference, Quantity: filter.quantity}
		uerr := &residual.DivisionUndefinedError{Pair: p, Subset: res.Subset.Name}
		return reportError(formatter, ExitFailure, ErrCodeUndefined, uerr.Error(), nil, uerr)
	}

	if opts.Z != 0 {
		report.Series = buildSeries(c, res, filter, opts.Z)
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	writeResidualsReport(formatter.Writer, report)
	return nil
}

func buildSeries(c *catalog.Catalog, res *pipeline.Result, filter residualFilter, z int) []SeriesReport {
	q := nuclide.TwoNeutronSeparation
	if filter.hasQ {
		q = filter.quantity
	}
	var out []SeriesReport
	for _, th := range c.ResidualTheories() {
		if filter.theory != nuclide.SourceUnknown && th != filter.theory {
			continue
		}
		points, ok := res.Residuals.Series(res.Driplines, z, th, c.Reference, q, res.Subset)
		if points == nil {
			points = []residual.Point{}
		}
		out = append(out, SeriesReport{Theory: th, Quantity: q, Z: z, Window: ok, Points: points})
	}
	return out
}

func writeResidualsReport(w io.Writer, r ResidualsReport) {
	fmt.Fprintf(w, "Reference: %s\n", r.Reference)
	writeRMS(w, r.Subset, r.RMS, r.Undefined)
	for _, s := range r.Series {
		fmt.Fprintf(w, "Chain Z=%d %s %s:\n", s.Z, s.Theory, s.Quantity)
		if !s.Window {
			fmt.Fprintln(w, "  no dripline window")
			continue
		}
		for _, p := range s.Points {
			fmt.Fprintf(w, "  N=%-4d %10.6f\n", p.N, p.Residual)
		}
	}
}
