// Package catalog describes one reconciliation run: which tables to read,
// in which format, and the knobs every stage uses.
//
// A catalog is a YAML or CUE file. Relative table paths resolve against
// the directory holding the catalog. Omitted knobs take the defaults of
// the stage that owns them.
package catalog

import (
	"fmt"
	"path/filepath"

	"github.com/roach88/nucmass/internal/derive"
	"github.com/roach88/nucmass/internal/dripline"
	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/reader"
	"github.com/roach88/nucmass/internal/residual"
	"github.com/roach88/nucmass/internal/store"
)

// Catalog is a decoded run configuration.
type Catalog struct {
	// Reference is the comprehensive evaluation campaigns fall back to and
	// residuals compare against. Defaults to AME2016.
	Reference nuclide.Source `yaml:"reference" json:"reference"`
	// LowLimit drops filled separation energies below it.
	LowLimit *float64 `yaml:"low_limit" json:"low_limit"`
	// Digits rounds every derived value. Defaults to 6.
	Digits int `yaml:"digits" json:"digits"`

	Dripline *dripline.Config          `yaml:"dripline" json:"dripline"`
	Octupole *store.OctupoleThresholds `yaml:"octupole" json:"octupole"`

	// Subset names the RMS subset; see residual.ParseSubset.
	Subset string `yaml:"subset" json:"subset"`

	Sources    []Entry     `yaml:"sources" json:"sources"`
	Exclusions []Exclusion `yaml:"exclusions" json:"exclusions"`
	// UseKnownBad adds residual.KnownBadS2n to the exclusions.
	UseKnownBad bool `yaml:"use_known_bad" json:"use_known_bad"`

	// Dir is where the catalog was loaded from.
	Dir string `yaml:"-" json:"-"`
}

// Entry is one table to read.
type Entry struct {
	Source nuclide.Source `yaml:"source" json:"source"`
	Path   string         `yaml:"path" json:"path"`
	// Format names a reader format. Defaults per source, see DefaultFormat.
	Format string `yaml:"format" json:"format"`
	// Derive lists the separation energies to fill from binding energies.
	// Nil means derive.DefaultQuantities.
	Derive []nuclide.Quantity `yaml:"derive" json:"derive"`
}

// Exclusion removes one value after derivation.
type Exclusion struct {
	Source   nuclide.Source   `yaml:"source" json:"source"`
	Quantity nuclide.Quantity `yaml:"quantity" json:"quantity"`
	Z        int              `yaml:"z" json:"z"`
	N        int              `yaml:"n" json:"n"`
}

// Key returns the store key the exclusion removes.
func (e Exclusion) Key() store.Key {
	return store.Key{N: e.N, Z: e.Z, Source: e.Source}
}

// DefaultFormat returns the reader format a source is usually published
// in. AME tables default to the mass-excess file; their separation files
// need an explicit format.
func DefaultFormat(src nuclide.Source) string {
	switch {
	case src == nuclide.FRDM2012:
		return reader.FormatFRDM
	case src == nuclide.HFB24:
		return reader.FormatHFB24
	case src == nuclide.JYFLTRAP2017:
		return reader.FormatJYFLTRAP
	}
	switch src.Family() {
	case nuclide.FamilySkyrme:
		return reader.FormatMassExplorer
	case nuclide.FamilyRMF:
		return reader.FormatRMF
	case nuclide.FamilyOctupole:
		return reader.FormatOctupole
	case nuclide.FamilyEvaluation:
		return reader.FormatAMEMassExcess
	case nuclide.FamilyCampaign:
		return reader.FormatCampaign2018
	}
	return ""
}

// New returns a catalog holding every default knob and no sources.
// Decoding into it keeps the defaults of omitted fields.
func New() *Catalog {
	limit := derive.DefaultLowLimit
	cfg := dripline.DefaultConfig()
	t := store.DefaultOctupoleThresholds
	return &Catalog{
		Reference: nuclide.AME2016,
		LowLimit:  &limit,
		Digits:    derive.DefaultDigits,
		Dripline:  &cfg,
		Octupole:  &t,
	}
}

// resolve fills per-entry defaults and makes relative paths absolute.
func (c *Catalog) resolve() {
	for i := range c.Sources {
		e := &c.Sources[i]
		if e.Format == "" {
			e.Format = DefaultFormat(e.Source)
		}
		if e.Derive == nil {
			e.Derive = derive.DefaultQuantities(e.Source)
		}
		if e.Path != "" && !filepath.IsAbs(e.Path) && c.Dir != "" {
			e.Path = filepath.Join(c.Dir, e.Path)
		}
	}
}

// Validate checks a decoded catalog.
func (c *Catalog) Validate() error {
	if !c.Reference.IsExperiment() {
		return &ParseError{Field: "reference", Message: fmt.Sprintf("%s is not an experimental source", c.Reference)}
	}
	if c.Digits < 0 || c.Digits > 12 {
		return &ParseError{Field: "digits", Message: fmt.Sprintf("must be within [0,12], got %d", c.Digits)}
	}
	if c.Dripline != nil && c.Dripline.Ratio <= 0 {
		return &ParseError{Field: "dripline.ratio", Message: "must be positive"}
	}
	if err := residual.CheckSubsetName(c.Subset); err != nil {
		return &ParseError{Field: "subset", Message: err.Error()}
	}
	if len(c.Sources) == 0 {
		return &ParseError{Field: "sources", Message: "at least one source is required"}
	}
	type fileKey struct {
		src  nuclide.Source
		path string
	}
	seen := make(map[fileKey]bool)
	for i, e := range c.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if !e.Source.Valid() {
			return &ParseError{Field: field + ".source", Message: "unknown source"}
		}
		if e.Path == "" {
			return &ParseError{Field: field + ".path", Message: "path is required"}
		}
		if _, err := reader.Lookup(e.Format); err != nil {
			return &ParseError{Field: field + ".format", Message: err.Error()}
		}
		for _, q := range e.Derive {
			if !q.IsSeparation() {
				return &ParseError{Field: field + ".derive", Message: fmt.Sprintf("%s is not a separation energy", q)}
			}
		}
		k := fileKey{src: e.Source, path: e.Path}
		if seen[k] {
			return &ParseError{Field: field, Message: fmt.Sprintf("%s listed twice for %s", e.Path, e.Source)}
		}
		seen[k] = true
	}
	for i, x := range c.Exclusions {
		if !x.Source.Valid() || !x.Quantity.Valid() || x.Z < 0 || x.N < 0 {
			return &ParseError{Field: fmt.Sprintf("exclusions[%d]", i), Message: "needs a source, a quantity and non-negative z, n"}
		}
	}
	return nil
}

// DeriveConfig returns the derivation knobs.
func (c *Catalog) DeriveConfig() derive.Config {
	cfg := derive.DefaultConfig()
	cfg.Reference = c.Reference
	cfg.Digits = c.Digits
	if c.LowLimit != nil {
		cfg.LowLimit = *c.LowLimit
	}
	return cfg
}

// DriplineConfig returns the dripline knobs.
func (c *Catalog) DriplineConfig() dripline.Config {
	if c.Dripline == nil {
		return dripline.DefaultConfig()
	}
	return *c.Dripline
}

// OctupoleThresholds returns the octupole-relevance thresholds.
func (c *Catalog) OctupoleThresholds() store.OctupoleThresholds {
	if c.Octupole == nil {
		return store.DefaultOctupoleThresholds
	}
	return *c.Octupole
}

// SourceList returns the distinct sources of the catalog in registry order.
func (c *Catalog) SourceList() []nuclide.Source {
	seen := make(map[nuclide.Source]bool)
	var out []nuclide.Source
	for _, e := range c.Sources {
		if !seen[e.Source] {
			seen[e.Source] = true
			out = append(out, e.Source)
		}
	}
	nuclide.SortSources(out)
	return out
}

func (c *Catalog) filter(keep func(nuclide.Source) bool) []nuclide.Source {
	var out []nuclide.Source
	for _, src := range c.SourceList() {
		if keep(src) {
			out = append(out, src)
		}
	}
	return out
}

func member(group []nuclide.Source) func(nuclide.Source) bool {
	return func(src nuclide.Source) bool {
		for _, g := range group {
			if g == src {
				return true
			}
		}
		return false
	}
}

// Campaigns returns the post-evaluation experimental sources.
func (c *Catalog) Campaigns() []nuclide.Source {
	return c.filter(func(src nuclide.Source) bool {
		return src.Family() == nuclide.FamilyCampaign
	})
}

// DriplineSources returns the catalog's theories that driplines are
// located for.
func (c *Catalog) DriplineSources() []nuclide.Source {
	return c.filter(member(nuclide.DriplineTheory()))
}

// ResidualTheories returns the catalog's theories compared against the
// reference.
func (c *Catalog) ResidualTheories() []nuclide.Source {
	return c.filter(member(nuclide.ResidualTheory()))
}

// ExclusionKeys groups the exclusions by quantity, known-bad entries
// included when enabled.
func (c *Catalog) ExclusionKeys() map[nuclide.Quantity][]store.Key {
	out := make(map[nuclide.Quantity][]store.Key)
	if c.UseKnownBad {
		out[nuclide.TwoNeutronSeparation] = append(out[nuclide.TwoNeutronSeparation], residual.KnownBadS2n()...)
	}
	for _, x := range c.Exclusions {
		out[x.Quantity] = append(out[x.Quantity], x.Key())
	}
	return out
}
