package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/nucmass/internal/dripline"
	"github.com/roach88/nucmass/internal/nuclide"
)

// DriplinesOptions holds flags for the driplines command.
type DriplinesOptions struct {
	*RootOptions
	Source string
	Z      int
}

// NewDriplinesCommand creates the driplines command.
func NewDriplinesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DriplinesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "driplines <catalog>",
		Short: "Locate two-particle driplines of the catalog's theories",
		Long: `Run the catalog and print the proton and neutron two-particle
driplines of every even-Z isotopic chain. A trailing "*" marks a boundary
that fell back to the edge of the available data.

Example:
  nucmass driplines ./run.yaml
  nucmass driplines ./run.yaml --source SLy4 --z 20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDriplines(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "only print this theory")
	cmd.Flags().IntVar(&opts.Z, "z", 0, "only print this proton number")

	return cmd
}

func runDriplines(opts *DriplinesOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var only nuclide.Source
	if opts.Source != "" {
		src, err := nuclide.ParseSource(opts.Source)
		if err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeInvalidFlag, err.Error(), nil, err)
		}
		only = src
	}

	_, res, err := loadAndReconcile(opts.RootOptions, cmd, path, nil)
	if err != nil {
		return err
	}

	boundaries := []dripline.Boundary{}
	for _, b := range res.Driplines.Boundaries() {
		if only != nuclide.SourceUnknown && b.Source != only {
			continue
		}
		if opts.Z != 0 && b.Z != opts.Z {
			continue
		}
		boundaries = append(boundaries, b)
	}

	if formatter.Format == "json" {
		return formatter.Success(boundaries)
	}
	writeDriplineTable(formatter.Writer, boundaries)
	return nil
}

// writeDriplineTable prints one row per (source, Z). Boundaries arrive
// sorted by source, Z, then side.
func writeDriplineTable(w io.Writer, boundaries []dripline.Boundary) {
	const layout = "%-13s %4s %7s %8s\n"
	fmt.Fprintf(w, layout, "SOURCE", "Z", "PROTON", "NEUTRON")

	cell := func(b *dripline.Boundary) string {
		if b == nil {
			return "-"
		}
		s := strconv.Itoa(b.N)
		if b.Fallback {
			s += "*"
		}
		return s
	}
	for i := 0; i < len(boundaries); {
		src, z := boundaries[i].Source, boundaries[i].Z
		var proton, neutron *dripline.Boundary
		for ; i < len(boundaries) && boundaries[i].Source == src && boundaries[i].Z == z; i++ {
			b := boundaries[i]
			switch b.Side {
			case dripline.Proton:
				proton = &b
			case dripline.Neutron:
				neutron = &b
			}
		}
		fmt.Fprintf(w, layout, src, strconv.Itoa(z), cell(proton), cell(neutron))
	}
}
