package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/nucmass/internal/dripline"
	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/pipeline"
	"github.com/roach88/nucmass/internal/residual"
	"github.com/roach88/nucmass/internal/store"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RMSRow is one stored RMS statistic. Value is nil when the subset held
// no residuals.
type RMSRow struct {
	Pair   residual.Pair `json:"pair"`
	Subset string        `json:"subset"`
	Value  *float64      `json:"rms"`
	Count  int           `json:"count"`
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		createdAt string
		reference string
	)
	if err := row.Scan(&run.ID, &run.Seq, &createdAt, &run.Catalog, &reference, &run.Subset); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	run.CreatedAt = t
	if run.Reference, err = nuclide.ParseSource(reference); err != nil {
		return Run{}, err
	}
	return run, nil
}

func readRun(ctx context.Context, q querier, id string) (Run, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, seq, created_at, catalog, reference, subset
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// ReadRun returns the run with the given ID.
func (s *Snapshot) ReadRun(ctx context.Context, id string) (Run, error) {
	return readRun(ctx, s.db, id)
}

// ListRuns returns every run, oldest first by sequence number.
//
// Returns an empty slice (not nil) if there are no runs.
func (s *Snapshot) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, created_at, catalog, reference, subset
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the run with the highest sequence number.
func (s *Snapshot) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, created_at, catalog, reference, subset
		FROM runs
		ORDER BY seq DESC
		LIMIT 1
	`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

// ReadSources returns the read summary of a run in catalog order.
func (s *Snapshot) ReadSources(ctx context.Context, runID string) ([]pipeline.SourceReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, path, format, lines, records, skipped, rejected, filtered
		FROM run_sources
		WHERE run_id = ?
		ORDER BY ord ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	out := []pipeline.SourceReport{}
	for rows.Next() {
		var (
			r   pipeline.SourceReport
			src string
		)
		if err := rows.Scan(&src, &r.Path, &r.Format, &r.Lines, &r.Records, &r.Skipped, &r.Rejected, &r.Filtered); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if r.Source, err = nuclide.ParseSource(src); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return out, nil
}

// ReadValues returns the stored values of one quantity and source, sorted
// by Z then N.
func (s *Snapshot) ReadValues(ctx context.Context, runID string, q nuclide.Quantity, src nuclide.Source) ([]store.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT z, n, value, uncertainty
		FROM mass_values
		WHERE run_id = ? AND quantity = ? AND source = ?
		ORDER BY z ASC, n ASC
	`, runID, q.String(), src.String())
	if err != nil {
		return nil, fmt.Errorf("query values: %w", err)
	}
	defer rows.Close()

	out := []store.Entry{}
	for rows.Next() {
		e := store.Entry{Key: store.Key{Source: src}}
		var u sql.NullFloat64
		if err := rows.Scan(&e.Key.Z, &e.Key.N, &e.Value, &u); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		if u.Valid {
			e.Uncertainty = &u.Float64
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate values: %w", err)
	}
	return out, nil
}

// ReadDriplines returns the boundaries of a run. Rows come back sorted by
// source name, Z, then side; callers wanting registry order re-sort.
func (s *Snapshot) ReadDriplines(ctx context.Context, runID string) ([]dripline.Boundary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, z, side, n, fallback
		FROM driplines
		WHERE run_id = ?
		ORDER BY source COLLATE BINARY ASC, z ASC, side DESC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query driplines: %w", err)
	}
	defer rows.Close()

	out := []dripline.Boundary{}
	for rows.Next() {
		var (
			b         dripline.Boundary
			src, side string
		)
		if err := rows.Scan(&src, &b.Z, &side, &b.N, &b.Fallback); err != nil {
			return nil, fmt.Errorf("scan dripline: %w", err)
		}
		if b.Source, err = nuclide.ParseSource(src); err != nil {
			return nil, err
		}
		if b.Side, err = dripline.ParseSide(side); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate driplines: %w", err)
	}
	return out, nil
}

// ReadResiduals returns the residuals of one pair, sorted by Z then N.
func (s *Snapshot) ReadResiduals(ctx context.Context, runID string, p residual.Pair) ([]residual.Residual, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT z, n, value
		FROM residuals
		WHERE run_id = ? AND theory = ? AND reference = ? AND quantity = ?
		ORDER BY z ASC, n ASC
	`, runID, p.Theory.String(), p.Reference.String(), p.Quantity.String())
	if err != nil {
		return nil, fmt.Errorf("query residuals: %w", err)
	}
	defer rows.Close()

	out := []residual.Residual{}
	for rows.Next() {
		r := residual.Residual{Key: residual.Key{Theory: p.Theory, Reference: p.Reference, Quantity: p.Quantity}}
		if err := rows.Scan(&r.Key.Z, &r.Key.N, &r.Value); err != nil {
			return nil, fmt.Errorf("scan residual: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate residuals: %w", err)
	}
	return out, nil
}

// ReadRMS returns the RMS statistics of a run sorted by theory, reference,
// quantity, then subset name.
func (s *Snapshot) ReadRMS(ctx context.Context, runID string) ([]RMSRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT theory, reference, quantity, subset, value, count
		FROM rms
		WHERE run_id = ?
		ORDER BY theory COLLATE BINARY ASC, reference COLLATE BINARY ASC,
		         quantity COLLATE BINARY ASC, subset COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rms: %w", err)
	}
	defer rows.Close()

	out := []RMSRow{}
	for rows.Next() {
		var (
			r            RMSRow
			th, ref, qty string
			v            sql.NullFloat64
		)
		if err := rows.Scan(&th, &ref, &qty, &r.Subset, &v, &r.Count); err != nil {
			return nil, fmt.Errorf("scan rms: %w", err)
		}
		if r.Pair.Theory, err = nuclide.ParseSource(th); err != nil {
			return nil, err
		}
		if r.Pair.Reference, err = nuclide.ParseSource(ref); err != nil {
			return nil, err
		}
		if r.Pair.Quantity, err = nuclide.ParseQuantity(qty); err != nil {
			return nil, err
		}
		if v.Valid {
			r.Value = &v.Float64
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rms: %w", err)
	}
	return out, nil
}
