package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/nucmass/internal/catalog"
	"github.com/roach88/nucmass/internal/nuclide"
)

// SourceRow is one registry entry as printed by the sources command.
type SourceRow struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Family   string `json:"family"`
	Vintage  int    `json:"vintage,omitempty"`
	Format   string `json:"format"`
}

// NewSourcesCommand creates the sources command.
func NewSourcesCommand(rootOpts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List registered mass-table sources",
		Long: `List every theory model and experimental vintage nucmass knows, with
the reader format a catalog entry uses when it names none.

Example:
  nucmass sources
  nucmass sources --category experiment --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(rootOpts, category, cmd)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list one category (theory|experiment)")

	return cmd
}

func runSources(opts *RootOptions, category string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sources := nuclide.All()
	switch category {
	case "":
	case nuclide.Theory.String():
		sources = nuclide.ByCategory(nuclide.Theory)
	case nuclide.Experiment.String():
		sources = nuclide.ByCategory(nuclide.Experiment)
	default:
		msg := fmt.Sprintf("invalid category %q: must be theory or experiment", category)
		_ = formatter.Error(ErrCodeInvalidFlag, msg, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", ErrCodeInvalidFlag, msg))
	}

	rows := make([]SourceRow, 0, len(sources))
	for _, src := range sources {
		rows = append(rows, SourceRow{
			Name:     src.String(),
			Category: src.Category().String(),
			Family:   string(src.Family()),
			Vintage:  src.Vintage(),
			Format:   catalog.DefaultFormat(src),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(rows)
	}
	writeSourceTable(formatter.Writer, rows)
	return nil
}

func writeSourceTable(w io.Writer, rows []SourceRow) {
	const layout = "%-13s %-11s %-17s %-8s %s\n"
	fmt.Fprintf(w, layout, "NAME", "CATEGORY", "FAMILY", "VINTAGE", "FORMAT")
	for _, r := range rows {
		vintage := "-"
		if r.Vintage > 0 {
			vintage = strconv.Itoa(r.Vintage)
		}
		fmt.Fprintf(w, layout, r.Name, r.Category, r.Family, vintage, r.Format)
	}
}
