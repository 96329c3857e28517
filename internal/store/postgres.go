package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mortis-lab/pmi-cli/internal/db"
	"github.com/mortis-lab/pmi-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":            `INSERT INTO runs (id, scenario, species, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_run_status":     `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"update_run_result":     `UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"get_run":               `SELECT id, scenario, status, result, created_at, updated_at FROM runs WHERE id = $1`,
	"get_cached_series":     `SELECT id, station, samples, fetched_at, expires_at FROM weather_cache WHERE station = $1 AND expires_at > now() ORDER BY fetched_at DESC LIMIT 1`,
	"set_cached_series":     `INSERT INTO weather_cache (id, station, samples, fetched_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
	"delete_expired_series": `DELETE FROM weather_cache WHERE expires_at <= now()`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	scenario   JSONB NOT NULL,
	species    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS weather_cache (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	station    TEXT NOT NULL,
	samples    JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_species ON runs(species);
CREATE INDEX IF NOT EXISTS idx_weather_cache_station ON weather_cache(station);
CREATE INDEX IF NOT EXISTS idx_weather_cache_expires_at ON weather_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_weather_cache_station_expires ON weather_cache(station, expires_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, scenario model.Scenario) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	scenarioJSON, err := json.Marshal(scenario)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal scenario")
	}

	_, err = s.pool.Exec(ctx, preparedStatements["insert_run"],
		id, scenarioJSON, scenario.SpeciesID, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Scenario:  scenario,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx, preparedStatements["update_run_status"],
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "%s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	status := model.RunStatusComplete
	if result.Error != "" {
		status = model.RunStatusFailed
	}

	tag, err := s.pool.Exec(ctx, preparedStatements["update_run_result"],
		resultJSON, string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "%s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_run"], runID)

	var r model.Run
	var scenarioJSON []byte
	var resultJSON []byte

	err := row.Scan(&r.ID, &scenarioJSON, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "%s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}

	if err := json.Unmarshal(scenarioJSON, &r.Scenario); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal scenario")
	}
	if len(resultJSON) > 0 {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, scenario, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.SpeciesID != "" {
		args = append(args, filter.SpeciesID)
		query += fmt.Sprintf(` AND species = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var scenarioJSON []byte
		var resultJSON []byte
		if err := rows.Scan(&r.ID, &scenarioJSON, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(scenarioJSON, &r.Scenario); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal scenario")
		}
		if len(resultJSON) > 0 {
			r.Result = &model.RunResult{}
			if err := json.Unmarshal(resultJSON, r.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal result")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) GetCachedSeries(ctx context.Context, station string) (*WeatherCache, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_cached_series"], station)

	var wc WeatherCache
	var samplesJSON []byte
	err := row.Scan(&wc.ID, &wc.Station, &samplesJSON, &wc.FetchedAt, &wc.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached series")
	}
	if err := json.Unmarshal(samplesJSON, &wc.Samples); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached samples")
	}
	return &wc, nil
}

func (s *PostgresStore) SetCachedSeries(ctx context.Context, station string, samples []model.WeatherSample, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	samplesJSON, err := json.Marshal(samples)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal samples")
	}

	_, err = s.pool.Exec(ctx, preparedStatements["set_cached_series"],
		id, station, samplesJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached series")
}

func (s *PostgresStore) DeleteExpiredSeries(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, preparedStatements["delete_expired_series"])
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired series")
	}
	return int(tag.RowsAffected()), nil
}
