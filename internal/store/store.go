// Package store persists analysis runs in SQLite: run metadata, histogram
// cells and B± selection statuses. The schema is managed by embedded
// golang-migrate migrations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/resonance.report/internal/histo"
	"github.com/banshee-data/resonance.report/internal/version"
)

// ErrNotFound is returned when a run or histogram does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite handle.
type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Writers serialize on SQLite anyway; one connection keeps PRAGMAs
	// applied to every statement.
	db.SetMaxOpenConns(1)
	for _, p := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	s := &Store{DB: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Run is one analysis invocation.
type Run struct {
	ID         string
	Kind       string
	ConfigPath string
	Version    string
	GitSHA     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Events     int64
}

// StartRun records a new run and returns it.
func (s *Store) StartRun(ctx context.Context, kind, configPath string) (*Run, error) {
	r := &Run{
		ID:         uuid.NewString(),
		Kind:       kind,
		ConfigPath: configPath,
		Version:    version.Version,
		GitSHA:     version.GitSHA,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.ExecContext(ctx,
		`INSERT INTO runs (run_id, kind, config_path, version, git_sha, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.ConfigPath, r.Version, r.GitSHA, r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return r, nil
}

// FinishRun stamps the run with its completion time and event count.
func (s *Store) FinishRun(ctx context.Context, runID string, events int64) error {
	res, err := s.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, events = ? WHERE run_id = ?`,
		time.Now().UTC(), events, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		r        Run
		finished sql.NullTime
	)
	err := s.QueryRowContext(ctx,
		`SELECT run_id, kind, config_path, version, git_sha, started_at, finished_at, events FROM runs WHERE run_id = ?`,
		runID).Scan(&r.ID, &r.Kind, &r.ConfigPath, &r.Version, &r.GitSHA, &r.StartedAt, &finished, &r.Events)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, nil
}

type axisJSON struct {
	Name  string    `json:"name"`
	Edges []float64 `json:"edges"`
}

// SaveHistogram writes every filled cell of h under runID.
func (s *Store) SaveHistogram(ctx context.Context, runID string, h *histo.Sparse) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := saveHistogram(ctx, tx, runID, h); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SaveRegistry writes every histogram of reg under runID in one transaction.
func (s *Store) SaveRegistry(ctx context.Context, runID string, reg *histo.Registry) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, name := range reg.Names() {
		if err := saveHistogram(ctx, tx, runID, reg.Get(name)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func saveHistogram(ctx context.Context, tx *sql.Tx, runID string, h *histo.Sparse) error {
	axes := make([]axisJSON, 0, h.Dims())
	for _, a := range h.Axes() {
		axes = append(axes, axisJSON{Name: a.Name, Edges: a.Edges})
	}
	axesData, err := json.Marshal(axes)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO histograms (run_id, name, axes_json, entries, overflow) VALUES (?, ?, ?, ?, ?)`,
		runID, h.Name(), string(axesData), h.Entries(), h.Overflow()); err != nil {
		return fmt.Errorf("failed to insert histogram %q: %w", h.Name(), err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM histogram_cells WHERE run_id = ? AND name = ?`, runID, h.Name()); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO histogram_cells (run_id, name, cell, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range h.Cells() {
		idx, err := json.Marshal(c.Index)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, runID, h.Name(), string(idx), c.Value); err != nil {
			return fmt.Errorf("failed to insert cell of %q: %w", h.Name(), err)
		}
	}
	return nil
}

// LoadHistogram restores one histogram.
func (s *Store) LoadHistogram(ctx context.Context, runID, name string) (*histo.Sparse, error) {
	var (
		axesData          string
		entries, overflow int64
	)
	err := s.QueryRowContext(ctx,
		`SELECT axes_json, entries, overflow FROM histograms WHERE run_id = ? AND name = ?`,
		runID, name).Scan(&axesData, &entries, &overflow)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("histogram %q in run %s: %w", name, runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var axes []axisJSON
	if err := json.Unmarshal([]byte(axesData), &axes); err != nil {
		return nil, fmt.Errorf("histogram %q: bad axes: %w", name, err)
	}
	hAxes := make([]histo.Axis, len(axes))
	for i, a := range axes {
		hAxes[i] = histo.Variable(a.Name, a.Edges)
	}
	h, err := histo.NewSparse(name, hAxes...)
	if err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx,
		`SELECT cell, value FROM histogram_cells WHERE run_id = ? AND name = ?`, runID, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cell  string
			value float64
			idx   []int
		)
		if err := rows.Scan(&cell, &value); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cell), &idx); err != nil {
			return nil, fmt.Errorf("histogram %q: bad cell %q: %w", name, cell, err)
		}
		if err := h.SetCell(idx, value); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	h.SetCounters(entries, overflow)
	return h, nil
}

// HistogramNames lists the histograms stored for a run.
func (s *Store) HistogramNames(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.QueryContext(ctx, `SELECT name FROM histograms WHERE run_id = ? ORDER BY name`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// SaveSelections writes the B± selection statuses of a run, indexed by
// candidate position.
func (s *Store) SaveSelections(ctx context.Context, runID string, statuses []uint8) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO selections (run_id, candidate, status) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	for i, st := range statuses {
		if _, err := stmt.ExecContext(ctx, runID, i, int(st)); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("failed to insert selection %d: %w", i, err)
		}
	}
	stmt.Close()
	return tx.Commit()
}

// Selections returns the statuses of a run in candidate order.
func (s *Store) Selections(ctx context.Context, runID string) ([]uint8, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT status FROM selections WHERE run_id = ? ORDER BY candidate`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint8
	for rows.Next() {
		var st int
		if err := rows.Scan(&st); err != nil {
			return nil, err
		}
		out = append(out, uint8(st))
	}
	return out, rows.Err()
}

// SelectionCounts returns how many candidates of a run reached each status.
func (s *Store) SelectionCounts(ctx context.Context, runID string) (map[uint8]int, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM selections WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint8]int{}
	for rows.Next() {
		var st, n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[uint8(st)] = n
	}
	return out, rows.Err()
}
