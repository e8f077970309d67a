package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/nucmass/internal/catalog"
	"github.com/roach88/nucmass/internal/derive"
	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/pipeline"
	"github.com/roach88/nucmass/internal/residual"
	"github.com/roach88/nucmass/internal/snapshot"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Database string

	// RunIDs allows overriding the snapshot run ID generator (for testing).
	// If nil, the snapshot uses UUIDv7.
	RunIDs snapshot.RunIDGenerator
	// Clock allows overriding the snapshot clock (for testing).
	Clock snapshot.Clock
}

// CoverageSummary counts one vintage comparison.
type CoverageSummary struct {
	Quantity nuclide.Quantity `json:"quantity"`
	Earlier  nuclide.Source   `json:"earlier"`
	Later    nuclide.Source   `json:"later"`
	New      int              `json:"new"`
	Existing int              `json:"existing"`
}

// ReconcileSummary is the payload of the reconcile command.
type ReconcileSummary struct {
	Catalog    string                  `json:"catalog"`
	Reference  nuclide.Source          `json:"reference"`
	Sources    []pipeline.SourceReport `json:"sources"`
	Fill       derive.Stats            `json:"fill"`
	Campaign   derive.Stats            `json:"campaign"`
	Excluded   int                     `json:"excluded"`
	Boundaries int                     `json:"boundaries"`
	Residuals  int                     `json:"residuals"`
	Subset     string                  `json:"subset"`
	RMS        []residual.Stat         `json:"rms"`
	Undefined  []residual.Pair         `json:"undefined"`
	Coverage   []CoverageSummary       `json:"coverage"`
	Run        *snapshot.Run           `json:"run,omitempty"`
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return newReconcileCommand(&ReconcileOptions{RootOptions: rootOpts})
}

func newReconcileCommand(opts *ReconcileOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <catalog>",
		Short: "Run the full reconciliation and optionally snapshot it",
		Long: `Read every table the catalog lists, derive separation energies,
reconcile measurement campaigns, locate driplines and compute residuals.

With --db the run is appended to a SQLite snapshot database (created if it
does not exist). Runs are never modified once written.

Example:
  nucmass reconcile ./run.yaml
  nucmass reconcile --db ./nucmass.db ./run.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "append the run to this SQLite snapshot database")

	return cmd
}

func runReconcile(opts *ReconcileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)

	c, res, err := loadAndReconcile(opts.RootOptions, cmd, path, nil)
	if err != nil {
		return err
	}
	summary := summarize(path, c, res)

	if opts.Database != "" {
		run, err := writeSnapshot(opts, cmd, logger, path, c, res)
		if err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeSnapshot, err.Error(), nil, err)
		}
		summary.Run = &run
	}

	if formatter.Format == "json" {
		runID := ""
		if summary.Run != nil {
			runID = summary.Run.ID
		}
		return formatter.SuccessWithRun(summary, runID)
	}
	writeSummary(formatter.Writer, summary)
	return nil
}

func writeSnapshot(opts *ReconcileOptions, cmd *cobra.Command, logger *slog.Logger, path string, c *catalog.Catalog, res *pipeline.Result) (snapshot.Run, error) {
	var sopts []snapshot.Option
	if opts.RunIDs != nil {
		sopts = append(sopts, snapshot.WithRunIDs(opts.RunIDs))
	}
	if opts.Clock != nil {
		sopts = append(sopts, snapshot.WithClock(opts.Clock))
	}

	logger.Info("opening snapshot", "path", opts.Database)
	snap, err := snapshot.Open(opts.Database, sopts...)
	if err != nil {
		return snapshot.Run{}, err
	}
	defer func() {
		if closeErr := snap.Close(); closeErr != nil {
			logger.Error("error closing snapshot", "error", closeErr)
		}
	}()

	run, err := snap.WriteRun(cmd.Context(), path, c, res)
	if err != nil {
		return snapshot.Run{}, err
	}
	if !run.Inserted {
		logger.Warn("run already in snapshot", "run", run.ID, "seq", run.Seq)
	} else {
		logger.Info("run written", "run", run.ID, "seq", run.Seq)
	}
	return run, nil
}

func summarize(path string, c *catalog.Catalog, res *pipeline.Result) ReconcileSummary {
	s := ReconcileSummary{
		Catalog:    path,
		Reference:  c.Reference,
		Sources:    res.Sources,
		Fill:       res.Fill,
		Campaign:   res.Campaign,
		Excluded:   res.Excluded,
		Boundaries: res.Driplines.Len(),
		Residuals:  res.Residuals.Len(),
		Subset:     res.Subset.Name,
		RMS:        res.RMS,
		Undefined:  res.Undefined,
		Coverage:   []CoverageSummary{},
	}
	if s.RMS == nil {
		s.RMS = []residual.Stat{}
	}
	if s.Undefined == nil {
		s.Undefined = []residual.Pair{}
	}
	for _, r := range res.Coverage {
		s.Coverage = append(s.Coverage, CoverageSummary{
			Quantity: r.Quantity,
			Earlier:  r.Earlier,
			Later:    r.Later,
			New:      r.New,
			Existing: r.Existing,
		})
	}
	return s
}

func writeSummary(w io.Writer, s ReconcileSummary) {
	fmt.Fprintf(w, "Reconciled %s against %s\n", s.Catalog, s.Reference)
	fmt.Fprintln(w, "Sources:")
	for _, r := range s.Sources {
		fmt.Fprintf(w, "  %-13s %-16s lines=%d records=%d skipped=%d rejected=%d filtered=%d\n",
			r.Source, r.Format, r.Lines, r.Records, r.Skipped, r.Rejected, r.Filtered)
	}
	fmt.Fprintf(w, "Filled: %d derived, %d below limit\n", s.Fill.Derived, s.Fill.BelowLimit)
	fmt.Fprintf(w, "Campaigns: %d derived, %d fallback, %d removed\n",
		s.Campaign.Derived, s.Campaign.Fallback, s.Campaign.Removed)
	if s.Excluded > 0 {
		fmt.Fprintf(w, "Excluded: %d\n", s.Excluded)
	}
	fmt.Fprintf(w, "Driplines: %d boundaries\n", s.Boundaries)
	fmt.Fprintf(w, "Residuals: %d\n", s.Residuals)
	writeRMS(w, s.Subset, s.RMS, s.Undefined)
	if len(s.Coverage) > 0 {
		fmt.Fprintln(w, "Coverage:")
		for _, c := range s.Coverage {
			fmt.Fprintf(w, "  %s %s vs %s: %d new, %d existing\n", c.Quantity, c.Later, c.Earlier, c.New, c.Existing)
		}
	}
	if s.Run != nil {
		fmt.Fprintf(w, "Snapshot: run %s (seq %d)\n", s.Run.ID, s.Run.Seq)
	}
}

func writeRMS(w io.Writer, subset string, stats []residual.Stat, undefined []residual.Pair) {
	fmt.Fprintf(w, "RMS over %s:\n", subset)
	for _, st := range stats {
		fmt.Fprintf(w, "  %-24s %10.6f  n=%d\n", st.Pair, st.Value, st.Count)
	}
	for _, p := range undefined {
		fmt.Fprintf(w, "  %-24s %10s\n", p, "undefined")
	}
}
