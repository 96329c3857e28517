package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	scenario   TEXT NOT NULL,
	species    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS weather_cache (
	id         TEXT PRIMARY KEY,
	station    TEXT NOT NULL,
	samples    TEXT NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_species ON runs(species);
CREATE INDEX IF NOT EXISTS idx_weather_cache_station ON weather_cache(station);
CREATE INDEX IF NOT EXISTS idx_weather_cache_expires_at ON weather_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, scenario model.Scenario) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	scenarioJSON, err := json.Marshal(scenario)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal scenario")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, scenario, species, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(scenarioJSON), scenario.SpeciesID, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Scenario:  scenario,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	status := model.RunStatusComplete
	if result.Error != "" {
		status = model.RunStatusFailed
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scenario, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, scenario, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.SpeciesID != "" {
		query += ` AND species = ?`
		args = append(args, filter.SpeciesID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetCachedSeries(ctx context.Context, station string) (*WeatherCache, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, station, samples, fetched_at, expires_at FROM weather_cache
		 WHERE station = ? AND expires_at > datetime('now')
		 ORDER BY fetched_at DESC LIMIT 1`,
		station,
	)

	var wc WeatherCache
	var samplesJSON string
	err := row.Scan(&wc.ID, &wc.Station, &samplesJSON, &wc.FetchedAt, &wc.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached series")
	}
	if err := json.Unmarshal([]byte(samplesJSON), &wc.Samples); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached samples")
	}
	return &wc, nil
}

func (s *SQLiteStore) SetCachedSeries(ctx context.Context, station string, samples []model.WeatherSample, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	samplesJSON, err := json.Marshal(samples)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal samples")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO weather_cache (id, station, samples, fetched_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		id, station, string(samplesJSON), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached series")
}

func (s *SQLiteStore) DeleteExpiredSeries(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM weather_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired series")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrRunNotFound, "%s: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var scenarioJSON string
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &scenarioJSON, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(scenarioJSON), &r.Scenario); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal scenario")
	}
	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}
