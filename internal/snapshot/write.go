package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/nucmass/internal/catalog"
	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/pipeline"
)

// Run is one snapshot row.
type Run struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	CreatedAt time.Time      `json:"created_at"`
	Catalog   string         `json:"catalog"`
	Reference nuclide.Source `json:"reference"`
	Subset    string         `json:"subset"`
	// Inserted is false when the run ID already existed and nothing was
	// written.
	Inserted bool `json:"inserted"`
}

// marshalConfig renders the catalog as JSON TEXT with HTML escaping off,
// so source names such as "NL3*" stay readable.
func marshalConfig(c *catalog.Catalog) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func nullable(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// WriteRun stores a completed run in one transaction: the run row, the
// per-source read summary, every store value, the driplines, the
// residuals and the RMS statistics. catalogPath is recorded as given.
func (s *Snapshot) WriteRun(ctx context.Context, catalogPath string, c *catalog.Catalog, res *pipeline.Result) (Run, error) {
	config, err := marshalConfig(c)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	run := Run{
		ID:        s.ids.NewRunID(),
		CreatedAt: s.clock.Now().UTC(),
		Catalog:   catalogPath,
		Reference: c.Reference,
		Subset:    res.Subset.Name,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, created_at, catalog, reference, subset, config)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Seq, run.CreatedAt.Format(time.RFC3339Nano), run.Catalog, run.Reference.String(), run.Subset, config)
	if err != nil {
		return Run{}, fmt.Errorf("write run: insert: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return Run{}, fmt.Errorf("write run: rows affected: %w", err)
	}
	if n == 0 {
		existing, err := readRun(ctx, tx, run.ID)
		if err != nil {
			return Run{}, fmt.Errorf("write run: select existing: %w", err)
		}
		return existing, nil
	}
	run.Inserted = true

	writers := []func(context.Context, *sql.Tx, string, *pipeline.Result) error{
		writeSources,
		writeValues,
		writeDriplines,
		writeResiduals,
		writeRMS,
	}
	for _, w := range writers {
		if err := w(ctx, tx, run.ID, res); err != nil {
			return Run{}, fmt.Errorf("write run %s: %w", run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}

func writeSources(ctx context.Context, tx *sql.Tx, runID string, res *pipeline.Result) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_sources (run_id, ord, source, path, format, lines, records, skipped, rejected, filtered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	defer stmt.Close()
	for i, r := range res.Sources {
		if _, err := stmt.ExecContext(ctx, runID, i, r.Source.String(), r.Path, r.Format,
			r.Lines, r.Records, r.Skipped, r.Rejected, r.Filtered); err != nil {
			return fmt.Errorf("sources: %w", err)
		}
	}
	return nil
}

func writeValues(ctx context.Context, tx *sql.Tx, runID string, res *pipeline.Result) error {
	if res.Store == nil {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mass_values (run_id, quantity, source, z, n, value, uncertainty)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("values: %w", err)
	}
	defer stmt.Close()
	for _, q := range nuclide.Quantities {
		for _, e := range res.Store.Entries(q) {
			if _, err := stmt.ExecContext(ctx, runID, q.String(), e.Key.Source.String(),
				e.Key.Z, e.Key.N, e.Value, nullable(e.Uncertainty)); err != nil {
				return fmt.Errorf("values: %w", err)
			}
		}
	}
	return nil
}

func writeDriplines(ctx context.Context, tx *sql.Tx, runID string, res *pipeline.Result) error {
	if res.Driplines == nil {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO driplines (run_id, source, z, side, n, fallback)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("driplines: %w", err)
	}
	defer stmt.Close()
	for _, b := range res.Driplines.Boundaries() {
		if _, err := stmt.ExecContext(ctx, runID, b.Source.String(), b.Z, b.Side.String(), b.N, b.Fallback); err != nil {
			return fmt.Errorf("driplines: %w", err)
		}
	}
	return nil
}

func writeResiduals(ctx context.Context, tx *sql.Tx, runID string, res *pipeline.Result) error {
	if res.Residuals == nil {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO residuals (run_id, theory, reference, quantity, z, n, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("residuals: %w", err)
	}
	defer stmt.Close()
	for _, p := range res.Residuals.Pairs() {
		for _, r := range res.Residuals.Residuals(p.Theory, p.Reference, p.Quantity) {
			if _, err := stmt.ExecContext(ctx, runID, p.Theory.String(), p.Reference.String(),
				p.Quantity.String(), r.Key.Z, r.Key.N, r.Value); err != nil {
				return fmt.Errorf("residuals: %w", err)
			}
		}
	}
	return nil
}

func writeRMS(ctx context.Context, tx *sql.Tx, runID string, res *pipeline.Result) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rms (run_id, theory, reference, quantity, subset, value, count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("rms: %w", err)
	}
	defer stmt.Close()
	for _, st := range res.RMS {
		p := st.Pair
		if _, err := stmt.ExecContext(ctx, runID, p.Theory.String(), p.Reference.String(),
			p.Quantity.String(), st.Subset, st.Value, st.Count); err != nil {
			return fmt.Errorf("rms: %w", err)
		}
	}
	for _, p := range res.Undefined {
		if _, err := stmt.ExecContext(ctx, runID, p.Theory.String(), p.Reference.String(),
			p.Quantity.String(), res.Subset.Name, nil, 0); err != nil {
			return fmt.Errorf("rms: %w", err)
		}
	}
	return nil
}
