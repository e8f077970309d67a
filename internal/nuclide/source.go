package nuclide

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Source names one input dataset: a theory model or an experimental vintage.
type Source int

// Theory sources.
const (
	SourceUnknown Source = iota
	SkMStar
	SkP
	SLy4
	SVMin
	UNEDF0
	UNEDF1
	UNEDF2
	DDME2
	DDMEDelta
	DDPC1
	NL3Star
	FRDM2012
	HFB24
	OctSkMStar
	OctSkP
	OctSLy4
	OctSVMin
	OctUNEDF0
	OctUNEDF1
	OctUNEDF2
)

// Experimental sources.
const (
	AME2003 Source = iota + 100
	AME2016
	JYFLTRAP2017
	TRIUMF2018
	RIKEN2018
	NewOther
)

// Category partitions sources into theory and experiment.
type Category int

const (
	Theory Category = iota + 1
	Experiment
)

func (c Category) String() string {
	switch c {
	case Theory:
		return "theory"
	case Experiment:
		return "experiment"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Family groups sources by the kind of table they come from.
type Family string

const (
	FamilySkyrme           Family = "skyrme"
	FamilyRMF              Family = "rmf"
	FamilyPhenomenological Family = "phenomenological"
	FamilyOctupole         Family = "octupole"
	FamilyEvaluation       Family = "evaluation"
	FamilyCampaign         Family = "campaign"
)

// SourceInfo is the registry row for a source.
type SourceInfo struct {
	Name     string
	Category Category
	Family   Family
	// Vintage orders experimental sources chronologically. Zero for theory.
	Vintage int
	Aliases []string
}

var registry = map[Source]SourceInfo{
	SkMStar:   {Name: "SkM*", Category: Theory, Family: FamilySkyrme, Aliases: []string{"SKMS"}},
	SkP:       {Name: "SkP", Category: Theory, Family: FamilySkyrme},
	SLy4:      {Name: "SLy4", Category: Theory, Family: FamilySkyrme},
	SVMin:     {Name: "SV-min", Category: Theory, Family: FamilySkyrme, Aliases: []string{"SVMIN"}},
	UNEDF0:    {Name: "UNEDF0", Category: Theory, Family: FamilySkyrme},
	UNEDF1:    {Name: "UNEDF1", Category: Theory, Family: FamilySkyrme},
	UNEDF2:    {Name: "UNEDF2", Category: Theory, Family: FamilySkyrme},
	DDME2:     {Name: "DD-ME2", Category: Theory, Family: FamilyRMF, Aliases: []string{"DDME2"}},
	DDMEDelta: {Name: "DD-MEδ", Category: Theory, Family: FamilyRMF, Aliases: []string{"DDMED", "DD-MEdelta"}},
	DDPC1:     {Name: "DD-PC1", Category: Theory, Family: FamilyRMF, Aliases: []string{"DDPC1"}},
	NL3Star:   {Name: "NL3*", Category: Theory, Family: FamilyRMF, Aliases: []string{"NL3S"}},
	FRDM2012:  {Name: "FRDM2012", Category: Theory, Family: FamilyPhenomenological, Aliases: []string{"FRDM-2012"}},
	HFB24:     {Name: "HFB24", Category: Theory, Family: FamilyPhenomenological, Aliases: []string{"HFB-24"}},

	OctSkMStar: {Name: "oct-SkM*", Category: Theory, Family: FamilyOctupole, Aliases: []string{"oct-SKMS"}},
	OctSkP:     {Name: "oct-SkP", Category: Theory, Family: FamilyOctupole},
	OctSLy4:    {Name: "oct-SLy4", Category: Theory, Family: FamilyOctupole},
	OctSVMin:   {Name: "oct-SV-min", Category: Theory, Family: FamilyOctupole, Aliases: []string{"oct-SVMIN"}},
	OctUNEDF0:  {Name: "oct-UNEDF0", Category: Theory, Family: FamilyOctupole},
	OctUNEDF1:  {Name: "oct-UNEDF1", Category: Theory, Family: FamilyOctupole},
	OctUNEDF2:  {Name: "oct-UNEDF2", Category: Theory, Family: FamilyOctupole},

	AME2003:      {Name: "AME2003", Category: Experiment, Family: FamilyEvaluation, Vintage: 1},
	AME2016:      {Name: "AME2016", Category: Experiment, Family: FamilyEvaluation, Vintage: 2},
	JYFLTRAP2017: {Name: "JYFLTRAP2017", Category: Experiment, Family: FamilyCampaign, Vintage: 3, Aliases: []string{"JYFL2017"}},
	TRIUMF2018:   {Name: "TRIUMF2018", Category: Experiment, Family: FamilyCampaign, Vintage: 4},
	RIKEN2018:    {Name: "RIKEN2018", Category: Experiment, Family: FamilyCampaign, Vintage: 5},
	NewOther:     {Name: "new_other", Category: Experiment, Family: FamilyCampaign, Vintage: 6, Aliases: []string{"NewOther"}},
}

// octupole table -> legacy table of the same functional
var counterparts = map[Source]Source{
	OctSkMStar: SkMStar,
	OctSkP:     SkP,
	OctSLy4:    SLy4,
	OctSVMin:   SVMin,
	OctUNEDF0:  UNEDF0,
	OctUNEDF1:  UNEDF1,
	OctUNEDF2:  UNEDF2,
}

// Named source groups. Treat as read-only; use Union to build new sets.
var (
	SkyrmeTheory           = []Source{SkMStar, SkP, SLy4, SVMin, UNEDF0, UNEDF1, UNEDF2}
	RMFTheory              = []Source{DDME2, DDMEDelta, DDPC1, NL3Star}
	PhenomenologicalTheory = []Source{FRDM2012, HFB24}
	OctupoleTheory         = []Source{OctSkMStar, OctSkP, OctSLy4, OctSVMin, OctUNEDF0, OctUNEDF1, OctUNEDF2}
	AMEEvaluations         = []Source{AME2003, AME2016}
	Post2016Experiment     = []Source{JYFLTRAP2017, TRIUMF2018, RIKEN2018, NewOther}
)

// DriplineTheory is the set of tables the dripline locator scans by default.
func DriplineTheory() []Source {
	return Union(SkyrmeTheory, OctupoleTheory)
}

// ResidualTheory is the set of tables compared against experiment by default.
func ResidualTheory() []Source {
	return Union(SkyrmeTheory, PhenomenologicalTheory, OctupoleTheory)
}

// Union concatenates groups, dropping repeats and keeping first-seen order.
func Union(groups ...[]Source) []Source {
	seen := make(map[Source]bool)
	var out []Source
	for _, g := range groups {
		for _, s := range g {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// Info returns the registry row for s.
func (s Source) Info() (SourceInfo, bool) {
	info, ok := registry[s]
	return info, ok
}

// Valid reports whether s is in the registry.
func (s Source) Valid() bool {
	_, ok := registry[s]
	return ok
}

func (s Source) String() string {
	if info, ok := registry[s]; ok {
		return info.Name
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// Category returns the source category, or 0 for unknown sources.
func (s Source) Category() Category {
	return registry[s].Category
}

// Family returns the source family.
func (s Source) Family() Family {
	return registry[s].Family
}

// Vintage returns the chronological order of an experimental source.
func (s Source) Vintage() int {
	return registry[s].Vintage
}

// IsTheory reports whether s is a theory table.
func (s Source) IsTheory() bool { return s.Category() == Theory }

// IsExperiment reports whether s is an experimental table.
func (s Source) IsExperiment() bool { return s.Category() == Experiment }

// Counterpart maps an octupole table to the legacy table of the same
// functional. ok is false for every other source.
func (s Source) Counterpart() (Source, bool) {
	c, ok := counterparts[s]
	return c, ok
}

// OctupoleOf returns the octupole table whose counterpart is s.
func (s Source) OctupoleOf() (Source, bool) {
	for oct, legacy := range counterparts {
		if legacy == s {
			return oct, true
		}
	}
	return SourceUnknown, false
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid source %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(b []byte) error {
	parsed, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSource resolves a display name or alias. Matching is case-insensitive
// on the NFC form, so "DD-MEδ" matches regardless of how the delta was typed.
func ParseSource(name string) (Source, error) {
	key := foldName(name)
	for s, info := range registry {
		if foldName(info.Name) == key {
			return s, nil
		}
		for _, alias := range info.Aliases {
			if foldName(alias) == key {
				return s, nil
			}
		}
	}
	return SourceUnknown, fmt.Errorf("unknown source %q", name)
}

func foldName(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// All returns every registered source, theory first, each category in
// ascending enum order.
func All() []Source {
	out := make([]Source, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	SortSources(out)
	return out
}

// ByCategory returns registered sources of one category in enum order.
func ByCategory(c Category) []Source {
	var out []Source
	for _, s := range All() {
		if s.Category() == c {
			out = append(out, s)
		}
	}
	return out
}

// SortSources sorts in place: theory before experiment, then by enum value.
func SortSources(ss []Source) {
	sort.Slice(ss, func(i, j int) bool {
		ci, cj := ss[i].Category(), ss[j].Category()
		if ci != cj {
			return ci < cj
		}
		return ss[i] < ss[j]
	})
}

// ByVintage returns experimental sources sorted oldest first.
func ByVintage(ss []Source) []Source {
	out := append([]Source(nil), ss...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Vintage() < out[j].Vintage()
	})
	return out
}
