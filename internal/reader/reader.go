package reader

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/units"
)

// IDEpsilon is how far a float-encoded Z/N/A may sit from an integer.
const IDEpsilon = 1e-3

// MaxID bounds a parsed Z/N/A; larger identifiers are skipped as bad.
const MaxID = math.MaxInt32

// SkipReason classifies a skipped line.
type SkipReason string

const (
	SkipBlank     SkipReason = "blank"
	SkipShortLine SkipReason = "short_line"
	SkipBadID     SkipReason = "bad_id"
)

// Deformation holds the quadrupole and octupole deformation of a record.
type Deformation struct {
	Beta2 float64
	Beta3 float64
}

// Record is one parsed line.
type Record struct {
	Nuclide     nuclide.Nuclide
	Values      map[nuclide.Quantity]float64
	Errors      map[nuclide.Quantity]float64
	Deformation *Deformation
	Line        int
}

// Result is the outcome of reading one file.
type Result struct {
	Format  string
	Records []Record
	Lines   int
	Skipped int
	// SkipReasons tallies Skipped by reason.
	SkipReasons map[SkipReason]int
	// Rejected counts binding energies dropped for being >= 0.
	Rejected int
	// Filtered counts separation energies dropped by the low limit.
	Filtered int
}

type options struct {
	lowLimit float64
}

// Option configures Read.
type Option func(*options)

// WithLowLimit drops separation energies below limit at read time.
func WithLowLimit(limit float64) Option {
	return func(o *options) {
		o.lowLimit = limit
	}
}

// Read parses every line of r with the column map m.
// Only I/O errors and an invalid map are returned; malformed lines are
// skipped and counted.
func Read(r io.Reader, m ColumnMap, opts ...Option) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	o := options{lowLimit: math.Inf(-1)}
	for _, opt := range opts {
		opt(&o)
	}

	res := &Result{
		Format:      m.Name,
		Records:     []Record{},
		SkipReasons: make(map[SkipReason]int),
	}
	width := m.width()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read %s: %w", m.Name, err)
		}
		if line == "" && err == io.EOF {
			break
		}
		res.Lines++
		line = strings.TrimRight(line, "\r\n")
		if rec, reason, ok := parseLine(line, m, width, o, res); ok {
			rec.Line = res.Lines
			res.Records = append(res.Records, rec)
		} else {
			res.Skipped++
			res.SkipReasons[reason]++
		}
		if err == io.EOF {
			break
		}
	}
	return res, nil
}

func splitFields(line, delim string) []string {
	if delim == "" {
		return strings.Fields(line)
	}
	fields := strings.Split(line, delim)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func parseLine(line string, m ColumnMap, width int, o options, res *Result) (Record, SkipReason, bool) {
	if strings.TrimSpace(line) == "" {
		return Record{}, SkipBlank, false
	}
	ss := splitFields(line, m.Delimiter)
	if len(ss) < width {
		return Record{}, SkipShortLine, false
	}

	z, ok := parseID(ss[m.Z], m.IntegerIDs)
	if !ok {
		return Record{}, SkipBadID, false
	}
	var n int
	if m.N >= 0 {
		n, ok = parseID(ss[m.N], m.IntegerIDs)
	} else {
		var a int
		a, ok = parseID(ss[m.A], m.IntegerIDs)
		n = a - z
		ok = ok && n >= 0
	}
	if !ok {
		return Record{}, SkipBadID, false
	}

	rec := Record{
		Nuclide: nuclide.Nuclide{Z: z, N: n},
		Values:  make(map[nuclide.Quantity]float64),
		Errors:  make(map[nuclide.Quantity]float64),
	}

	if me := m.MassExcess; me != nil {
		if v, ok := parseValue(ss[me.Index], nil); ok {
			scale := scaleOf(me.Scale)
			be := units.Round(units.BindingEnergyFromMassExcess(v, z, n, me.Constants)*scale, me.Digits)
			if be >= 0 {
				res.Rejected++
			} else {
				rec.Values[nuclide.BindingEnergy] = be
				if me.ErrIndex >= 0 {
					if e, ok := parseValue(ss[me.ErrIndex], nil); ok {
						rec.Errors[nuclide.BindingEnergy] = math.Abs(e * scale)
					}
				}
			}
		}
	}

	for _, c := range m.Values {
		v, ok := parseValue(ss[c.Index], c.Sentinels)
		if !ok {
			continue
		}
		scale := scaleOf(c.Scale)
		v *= scale
		if c.Negate {
			v = -v
		}
		if c.Digits != NoRounding {
			v = units.Round(v, c.Digits)
		}
		switch {
		case c.Quantity == nuclide.BindingEnergy && v >= 0:
			res.Rejected++
			continue
		case c.Quantity.IsSeparation() && v < o.lowLimit:
			res.Filtered++
			continue
		}
		rec.Values[c.Quantity] = v
		if c.ErrIndex >= 0 {
			if e, ok := parseValue(ss[c.ErrIndex], c.Sentinels); ok {
				rec.Errors[c.Quantity] = math.Abs(e * scale)
			}
		}
	}

	if m.Beta2 >= 0 {
		b2, ok2 := parseValue(ss[m.Beta2], nil)
		b3, ok3 := parseValue(ss[m.Beta3], nil)
		if ok2 && ok3 {
			rec.Deformation = &Deformation{Beta2: b2, Beta3: b3}
		}
	}

	return rec, "", true
}

// parseID parses a nucleon count. Float-encoded counts ("82.0") are
// accepted unless strict is set.
func parseID(s string, strict bool) (int, bool) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, v >= 0 && v <= MaxID
	}
	if strict {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	r := math.Round(f)
	if math.Abs(f-r) > IDEpsilon || r < 0 || r > MaxID {
		return 0, false
	}
	return int(r), true
}

// parseValue parses a numeric field. Sentinels, non-numeric text and
// non-finite values are absent.
func parseValue(s string, sentinels []string) (float64, bool) {
	s = strings.TrimSpace(s)
	for _, sentinel := range sentinels {
		if s == sentinel {
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
