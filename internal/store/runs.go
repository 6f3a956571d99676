package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/piwi3910/BarCut/internal/model"
)

// ErrNotFound is returned when a run ID is not in the history.
var ErrNotFound = errors.New("run not found")

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunSummary is one row of the run history listing.
type RunSummary struct {
	ID           string    `json:"id"`
	JobName      string    `json:"job_name"`
	CreatedAt    time.Time `json:"created_at"`
	StockLength  int       `json:"stock_length"`
	DemandPolicy string    `json:"demand_policy"`
	InitialBars  int       `json:"initial_bars"`
	BestBars     int       `json:"best_bars"`
	BestPatterns int       `json:"best_patterns"`
	BestWaste    int       `json:"best_waste"`
	Status       string    `json:"status"`
	ElapsedMS    int64     `json:"elapsed_ms"`
}

// SaveRun stores a result, replacing any earlier run with the same ID.
func (s *Store) SaveRun(r *model.OptimizeResult) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("save run: result has no ID")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	best := r.Best()
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO runs (
			id, job_name, created_at, stock_length, demand_policy,
			initial_bars, best_bars, best_patterns, best_waste,
			status, elapsed_ms, result_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.JobName, r.CreatedAt.UTC().Format(timeLayout), r.StockLength,
		string(r.Settings.DemandPolicy), r.Initial.Bars, best.Bars, best.Patterns,
		best.Waste, best.Status.String(), r.ElapsedMS, string(data))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun loads the full result of a run.
func (s *Store) GetRun(id string) (*model.OptimizeResult, error) {
	var data string
	err := s.db.QueryRow(`SELECT result_json FROM runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run failed: %w", err)
	}

	var r model.OptimizeResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, job_name, created_at, stock_length, demand_policy,
			initial_bars, best_bars, best_patterns, best_waste, status, elapsed_ms
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs failed: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var it RunSummary
		var created string
		if err := rows.Scan(&it.ID, &it.JobName, &created, &it.StockLength, &it.DemandPolicy,
			&it.InitialBars, &it.BestBars, &it.BestPatterns, &it.BestWaste, &it.Status, &it.ElapsedMS); err != nil {
			return nil, fmt.Errorf("scan run failed: %w", err)
		}
		if it.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("run %s has invalid timestamp %q: %w", it.ID, created, err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs failed: %w", err)
	}
	return out, nil
}

// DeleteRun removes a run from the history.
func (s *Store) DeleteRun(id string) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
