package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nucmass/internal/nuclide"
)

// ValidationResult is the JSON payload of a valid catalog.
type ValidationResult struct {
	Valid     bool             `json:"valid"`
	Reference nuclide.Source   `json:"reference"`
	Sources   []nuclide.Source `json:"sources"`
	Entries   int              `json:"entries"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Validate a catalog without reading its tables",
		Long: `Validate a YAML or CUE catalog.

The catalog is decoded strictly, CUE catalogs are unified with the built-in
schema, and every entry is checked for a known source, a path and a reader
format. Tables are not opened.

Example:
  nucmass validate ./run.yaml
  nucmass validate ./run.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	formatter.VerboseLog("Validating %s", path)
	c, err := loadCatalog(formatter, path)
	if err != nil {
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:     true,
			Reference: c.Reference,
			Sources:   c.SourceList(),
			Entries:   len(c.Sources),
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ Catalog valid: %d entries, %d sources, reference %s\n",
		len(c.Sources), len(c.SourceList()), c.Reference)
	return nil
}
