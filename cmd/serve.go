package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/engine"
	"github.com/herrtunante/whisp/internal/ingest"
	"github.com/herrtunante/whisp/internal/model"
	"github.com/herrtunante/whisp/internal/monitoring"
	"github.com/herrtunante/whisp/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAnalysis(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		api := newAPIServer(env, cfg.Analysis.PageThreshold)
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.router(),
		}

		// Background alert checks, if a webhook is configured.
		if cfg.Monitoring.WebhookURL != "" {
			alerter := monitoring.NewAlerter(cfg.Monitoring)
			alerter.Breaker = env.Breakers.Get("webhook")
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store),
				alerter,
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		err = srv.ListenAndServe()

		// Let in-flight background runs write their results before the
		// deferred env.Close tears down the store.
		api.waitAsync()

		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// analyzeRequest is the JSON body of POST /api/v1/analyze.
type analyzeRequest struct {
	GeoJSON       json.RawMessage   `json:"geojson"`
	OutputUnit    model.OutputUnit  `json:"output_unit,omitempty"`
	CalculateRisk *bool             `json:"calculate_risk,omitempty"`
	Thresholds    *model.Thresholds `json:"thresholds,omitempty"`
	DatasetIDs    []string          `json:"dataset_ids,omitempty"`
}

// apiServer carries the shared state behind the HTTP handlers and tracks
// in-flight background runs so shutdown can wait for them.
type apiServer struct {
	env            *analysisEnv
	asyncThreshold int
	asyncRuns      sync.WaitGroup
}

func newAPIServer(env *analysisEnv, asyncThreshold int) *apiServer {
	return &apiServer{env: env, asyncThreshold: asyncThreshold}
}

// waitAsync blocks until every background run has finished.
func (s *apiServer) waitAsync() { s.asyncRuns.Wait() }

func newRouter(env *analysisEnv, asyncThreshold int) http.Handler {
	return newAPIServer(env, asyncThreshold).router()
}

func (s *apiServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/datasets", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"datasets": s.env.Registry.Datasets(),
			})
		})

		r.Get("/metrics", s.handleMetrics)
		r.Post("/analyze", s.handleAnalyze)

		r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
			runs, err := s.env.Store.ListRuns(req.Context(), store.RunFilter{
				Status: model.RunStatus(req.URL.Query().Get("status")),
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
		})

		r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			run, err := s.env.Store.GetRun(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeJSON(w, http.StatusOK, run)
		})
	})

	return r
}

func (s *apiServer) handleMetrics(w http.ResponseWriter, req *http.Request) {
	lookback := cfg.Monitoring.LookbackWindowHours
	if lookback <= 0 {
		lookback = 24
	}
	snap, err := monitoring.NewCollector(s.env.Store).Collect(req.Context(), lookback)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	body := map[string]any{"runs": snap}
	if s.env.Breakers != nil {
		body["breakers"] = s.env.Breakers.States()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleAnalyze runs small plot sets synchronously and returns the table
// inline. Plot sets above the async threshold are recorded as a run and
// processed in the background; the caller polls /runs/{id}.
func (s *apiServer) handleAnalyze(w http.ResponseWriter, req *http.Request) {
	var body analyzeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "invalid request body"))
		return
	}
	if len(body.GeoJSON) == 0 {
		writeError(w, http.StatusBadRequest, eris.New("geojson is required"))
		return
	}

	plots, err := ingest.ParseGeoJSON(body.GeoJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	thresholds := cfg.Analysis.Thresholds.Thresholds()
	if body.Thresholds != nil {
		thresholds = *body.Thresholds
	}
	opts := engine.Options{
		OutputUnit:    outputUnit(string(body.OutputUnit)),
		CalculateRisk: true,
		Thresholds:    &thresholds,
		DatasetIDs:    body.DatasetIDs,
	}
	if body.CalculateRisk != nil {
		opts.CalculateRisk = *body.CalculateRisk
	}

	if len(plots) > s.asyncThreshold {
		run, err := s.env.Store.CreateRun(req.Context(), model.RunRequest{
			Source:        "api",
			Plots:         len(plots),
			OutputUnit:    opts.OutputUnit,
			CalculateRisk: opts.CalculateRisk,
			Thresholds:    thresholds,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		s.asyncRuns.Add(1)
		go func() {
			defer s.asyncRuns.Done()
			s.runAsync(run.ID, plots, opts)
		}()

		writeJSON(w, http.StatusAccepted, map[string]any{
			"run_id": run.ID,
			"status": run.Status,
			"plots":  len(plots),
		})
		return
	}

	result, err := s.env.Engine.Run(req.Context(), plots, opts)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records":     result.Table.Records(),
		"unit":        result.Table.Unit,
		"assessments": result.Assessments,
		"partial":     result.Partial(),
	})
}

func (s *apiServer) runAsync(runID string, plots []model.Plot, opts engine.Options) {
	ctx := context.Background()
	log := zap.L().With(zap.String("run_id", runID))

	if err := s.env.Store.UpdateRunStatus(ctx, runID, model.RunStatusReducing); err != nil {
		log.Error("update run status failed", zap.Error(err))
		return
	}

	result, err := s.env.Engine.Run(ctx, plots, opts)
	if err != nil {
		log.Error("async analysis failed", zap.Error(err))
		_ = s.env.Store.UpdateRunResult(ctx, runID, &model.RunResult{Error: err.Error()})
		return
	}

	if err := s.env.Store.UpdateRunResult(ctx, runID, runResult(result)); err != nil {
		log.Error("update run result failed", zap.Error(err))
		return
	}
	log.Info("async analysis complete", zap.Int("rows", len(result.Table.Rows)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
