package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mortis-lab/pmi-cli/internal/catalog"
	"github.com/mortis-lab/pmi-cli/internal/model"
	"github.com/mortis-lab/pmi-cli/internal/scenario"
	"github.com/mortis-lab/pmi-cli/internal/simulate"
	"github.com/mortis-lab/pmi-cli/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pmi.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	species, err := catalog.NewSpeciesCatalog(catalog.DefaultSpecies())
	require.NoError(t, err)
	tox, err := catalog.NewToxicologyCatalog(catalog.DefaultToxicology())
	require.NoError(t, err)

	params := simulate.DefaultParams()
	params.Mass = simulate.MassParams{}
	adapter := &scenario.Adapter{Species: species, Tox: tox, Params: params}

	srv := httptest.NewServer(newRouter(st, adapter))
	t.Cleanup(srv.Close)
	return srv
}

func apiScenario() model.Scenario {
	discovery := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	samples := make([]model.WeatherSample, 0, 97)
	for i := 96; i >= 0; i-- {
		samples = append(samples, model.WeatherSample{
			Time:  discovery.Add(-time.Duration(i) * time.Hour),
			TempC: 25,
		})
	}
	return model.Scenario{
		CaseID:        "case-api-001",
		SpeciesID:     "lucilia_sericata",
		ObservedStage: "egg",
		DiscoveryTime: discovery,
		Weather:       samples,
	}
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_EstimateAndFetchRun(t *testing.T) {
	srv := newTestServer(t)

	body, err := json.Marshal(apiScenario())
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/v1/estimate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	require.NotNil(t, run.Result)
	require.NotNil(t, run.Result.Estimate)
	assert.InDelta(t, 1.25, run.Result.Estimate.ElapsedHours, 1e-9)

	getResp, err := http.Get(srv.URL + "/v1/runs/" + run.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var stored model.Run
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&stored))
	assert.Equal(t, model.RunStatusComplete, stored.Status)
	assert.Equal(t, "case-api-001", stored.Scenario.CaseID)
}

func TestServer_EstimateRejectsBadBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/estimate", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_EstimateUnknownSpecies(t *testing.T) {
	srv := newTestServer(t)

	sc := apiScenario()
	sc.SpeciesID = "musca_domestica"
	body, err := json.Marshal(sc)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/v1/estimate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_ListRuns(t *testing.T) {
	srv := newTestServer(t)

	body, err := json.Marshal(apiScenario())
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/v1/estimate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	listResp, err := http.Get(srv.URL + "/v1/runs?species=lucilia_sericata")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var runs []model.Run
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&runs))
	assert.Len(t, runs, 1)
}

func TestServer_GetRun_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/runs/no-such-run")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBatchOutcome_ProcessCase(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pmi.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	defer st.Close()

	species, err := catalog.NewSpeciesCatalog(catalog.DefaultSpecies())
	require.NoError(t, err)
	tox, err := catalog.NewToxicologyCatalog(catalog.DefaultToxicology())
	require.NoError(t, err)
	params := simulate.DefaultParams()
	params.Mass = simulate.MassParams{}
	adapter := &scenario.Adapter{Species: species, Tox: tox, Params: params}

	path := filepath.Join(t.TempDir(), "case.yaml")
	require.NoError(t, scenario.SaveCaseFile(path, apiScenario()))

	out := processCase(context.Background(), st, adapter, path)
	assert.Empty(t, out.Error)
	require.NotNil(t, out.Estimate)
	assert.InDelta(t, 1.25, out.Estimate.ElapsedHours, 1e-9)

	stored, err := st.GetRun(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, stored.Status)

	missing := processCase(context.Background(), st, adapter, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NotEmpty(t, missing.Error)
}
