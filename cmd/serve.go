package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/metrics"
	"github.com/mortis-lab/pmi-cli/internal/model"
	"github.com/mortis-lab/pmi-cli/internal/scenario"
	"github.com/mortis-lab/pmi-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the estimation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		adapter, err := newAdapter(ctx)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(st, adapter),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

type apiServer struct {
	store   store.Store
	adapter *scenario.Adapter
}

func newRouter(st store.Store, adapter *scenario.Adapter) http.Handler {
	api := &apiServer{store: st, adapter: adapter}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, "/health", http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/estimate", api.handleEstimate)
		r.Get("/runs", api.handleListRuns)
		r.Get("/runs/{id}", api.handleGetRun)
	})
	return r
}

func (s *apiServer) handleEstimate(w http.ResponseWriter, r *http.Request) {
	const route = "/v1/estimate"

	var sc model.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeError(w, route, http.StatusBadRequest, err)
		return
	}

	run, err := s.store.CreateRun(r.Context(), sc)
	if err != nil {
		writeError(w, route, http.StatusInternalServerError, err)
		return
	}
	if err := s.store.UpdateRunStatus(r.Context(), run.ID, model.RunStatusRunning); err != nil {
		zap.L().Warn("mark run running", zap.String("run_id", run.ID), zap.Error(err))
	}

	started := time.Now()
	result, err := s.adapter.Run(sc)
	if err != nil {
		metrics.EstimationsTotal.WithLabelValues(sc.SpeciesID, "failed").Inc()
		failure := &model.RunResult{Species: sc.SpeciesID, Stage: sc.ObservedStage, Error: err.Error()}
		if perr := s.store.UpdateRunResult(r.Context(), run.ID, failure); perr != nil {
			zap.L().Error("persist failed run", zap.String("run_id", run.ID), zap.Error(perr))
		}
		writeError(w, route, http.StatusUnprocessableEntity, err)
		return
	}

	metrics.EstimationsTotal.WithLabelValues(result.Species, "complete").Inc()
	metrics.EstimationDuration.WithLabelValues(result.Species).Observe(time.Since(started).Seconds())
	metrics.EstimatedPMIHours.WithLabelValues(result.Species).Observe(result.Estimate.ElapsedHours)

	if err := s.store.UpdateRunResult(r.Context(), run.ID, result); err != nil {
		zap.L().Error("persist run result", zap.String("run_id", run.ID), zap.Error(err))
	}

	run.Result = result
	run.Status = model.RunStatusComplete
	writeJSON(w, route, http.StatusOK, run)
}

func (s *apiServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	const route = "/v1/runs"

	filter := store.RunFilter{
		Status:    model.RunStatus(r.URL.Query().Get("status")),
		SpeciesID: r.URL.Query().Get("species"),
		Limit:     50,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, route, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		filter.Limit = limit
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, route, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, route, http.StatusOK, runs)
}

func (s *apiServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	const route = "/v1/runs/{id}"

	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrRunNotFound) {
			writeError(w, route, http.StatusNotFound, err)
			return
		}
		writeError(w, route, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, route, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, route string, code int, v any) {
	metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.String("route", route), zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, route string, code int, err error) {
	zap.L().Warn("request failed", zap.String("route", route), zap.Int("code", code), zap.Error(err))
	writeJSON(w, route, code, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (defaults to server.port)")
	rootCmd.AddCommand(serveCmd)
}
