package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/herrtunante/whisp/internal/engine"
	"github.com/herrtunante/whisp/internal/ingest"
	"github.com/herrtunante/whisp/internal/model"
	"github.com/herrtunante/whisp/internal/registry"
	"github.com/herrtunante/whisp/internal/resilience"
	"github.com/herrtunante/whisp/internal/store"
	"github.com/herrtunante/whisp/pkg/gee"
)

// analysisEnv holds the initialized registry, backend client, and engine
// needed by the analyze/batch/serve commands. Store is nil unless
// initialized with withStore.
type analysisEnv struct {
	Registry *registry.Registry
	Client   gee.Client
	Engine   *engine.Engine
	Store    store.Store

	// Breakers holds the per-upstream circuit breakers (statistics
	// backend, alert webhook) so their states can be surfaced together.
	Breakers *resilience.ServiceBreakers
}

// Close releases resources held by the environment.
func (env *analysisEnv) Close() {
	if env.Store != nil {
		_ = env.Store.Close()
	}
}

// initAnalysis sets up the dataset registry, the zonal statistics client,
// and the engine. Callers should defer env.Close().
func initAnalysis(ctx context.Context, withStore bool) (*analysisEnv, error) {
	reg, err := registry.Load()
	if err != nil {
		return nil, err
	}

	burst := int(cfg.GEE.RequestsPerSec)
	if burst < 1 {
		burst = 1
	}
	client := gee.NewClient(
		cfg.GEE.APIKey, cfg.GEE.BaseURL,
		gee.WithRateLimit(cfg.GEE.RequestsPerSec, burst),
		gee.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.GEE.TimeoutSecs) * time.Second}),
		gee.WithRetryConfig(resilience.FromRetryConfig(cfg.GEE.RetryMaxAttempts, 0, 0, 0, -1)),
	)

	breakerCfg := resilience.FromCircuitConfig(cfg.GEE.BreakerFailures, cfg.GEE.BreakerResetSecs)
	breakerCfg.ShouldTrip = resilience.IsTransient
	breakers := resilience.NewServiceBreakers(breakerCfg)
	client = gee.WithBreaker(client, breakers.Get("gee"))

	env := &analysisEnv{
		Registry: reg,
		Client:   client,
		Engine:   engine.New(reg, client, cfg.Analysis.PageThreshold),
		Breakers: breakers,
	}

	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		env.Store = st
	}

	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "whisp.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// outputUnit resolves the effective output unit: an explicit flag or
// request value wins, otherwise the configured default applies.
func outputUnit(explicit string) model.OutputUnit {
	if explicit != "" {
		return model.OutputUnit(explicit)
	}
	return cfg.Analysis.Unit()
}

// loadPlots parses a plot file by extension: .geojson/.json via the GeoJSON
// parser, .shp via the shapefile reader.
func loadPlots(path string) ([]model.Plot, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		return ingest.ParseGeoJSON(data)
	case ".shp":
		return ingest.ParseShapefile(path)
	default:
		return nil, eris.Errorf("unsupported input format: %s", filepath.Ext(path))
	}
}
