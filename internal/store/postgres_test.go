package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := NewPostgresWithPool(mock)
	return s, mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "lucilia_sericata", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), testScenario())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, scenario, status, result, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("running", pgxmock.AnyArg(), "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing-run", model.RunStatusRunning)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunResult_FailedStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET result`).
		WithArgs(pgxmock.AnyArg(), "failed", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateRunResult(context.Background(), "run-1", &model.RunResult{Error: "boom"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedSeries_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, station, samples, fetched_at, expires_at FROM weather_cache`).
		WithArgs("UNKNOWN").
		WillReturnError(pgx.ErrNoRows)

	wc, err := s.GetCachedSeries(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, wc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedSeries_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	samples := []byte(`[{"time":"2024-06-01T00:00:00Z","temp_c":15}]`)
	rows := pgxmock.NewRows([]string{"id", "station", "samples", "fetched_at", "expires_at"}).
		AddRow("cache-1", "KBOS", samples, now, now.Add(time.Hour))

	mock.ExpectQuery(`SELECT id, station, samples, fetched_at, expires_at FROM weather_cache`).
		WithArgs("KBOS").
		WillReturnRows(rows)

	wc, err := s.GetCachedSeries(context.Background(), "KBOS")
	require.NoError(t, err)
	require.NotNil(t, wc)
	assert.Equal(t, "KBOS", wc.Station)
	require.Len(t, wc.Samples, 1)
	assert.InDelta(t, 15, wc.Samples[0].TempC, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetCachedSeries(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO weather_cache`).
		WithArgs(pgxmock.AnyArg(), "KJFK", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetCachedSeries(context.Background(), "KJFK", nil, 24*time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredSeries(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM weather_cache`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteExpiredSeries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
