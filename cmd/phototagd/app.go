package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anatolykoptev/go-phototag"
	"github.com/anatolykoptev/go-phototag/internal/assets"
	"github.com/anatolykoptev/go-phototag/internal/config"
	"github.com/anatolykoptev/go-phototag/internal/geocode"
	"github.com/anatolykoptev/go-phototag/internal/retag"
	"github.com/anatolykoptev/go-phototag/internal/server"
	"github.com/anatolykoptev/go-phototag/internal/store"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	configPath string
	config     *config.Config
}

func NewApp(configPath string) *App {
	return &App{configPath: configPath}
}

func (app *App) Run(ctx context.Context) error {
	cfg, err := config.LoadConfig(app.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.config = cfg
	setupLogging(cfg.Log)

	photos, err := store.Open(cfg.Storage.DataFile)
	if err != nil {
		return fmt.Errorf("failed to open photo store: %w", err)
	}

	files, err := app.assetStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize asset storage: %w", err)
	}

	sceneModel := phototag.NewResource("scene", phototag.OllamaScorerLoader(phototag.OllamaConfig{
		Endpoint:  cfg.Ollama.Endpoint,
		Model:     cfg.Ollama.SceneModel,
		KeepAlive: cfg.Ollama.KeepAlive(),
	}))
	labelModel := phototag.NewResource("labels", phototag.OllamaLabelerLoader(phototag.OllamaConfig{
		Endpoint:  cfg.Ollama.Endpoint,
		Model:     cfg.Ollama.LabelModel,
		KeepAlive: cfg.Ollama.KeepAlive(),
	}))
	var depthModel *phototag.Resource[phototag.DepthEstimator]
	if cfg.Depth.Endpoint != "" {
		depthModel = phototag.NewResource("depth", phototag.HTTPDepthLoader(phototag.HTTPDepthEstimator{
			Endpoint:  cfg.Depth.Endpoint,
			HealthURL: cfg.Depth.HealthURL,
			Timeout:   cfg.Depth.Timeout(),
		}))
	} else {
		slog.Info("phototagd: no depth endpoint configured; depth profiles use defaults")
	}

	metrics := server.NewMetrics()
	gazetteer := phototag.DefaultGazetteer()
	analyzer := phototag.NewAnalyzer(phototag.Config{
		Scene:      phototag.NewSceneClassifier(sceneModel),
		Depth:      phototag.NewDepthProfiler(depthModel),
		Gazetteer:  gazetteer,
		Timeout:    cfg.Analysis.Timeout(),
		OnAnalysis: metrics.ObserveAnalysis,
		OnPanic:    metrics.ObservePanic,
	})

	deps := server.Deps{
		Photos:    photos,
		Assets:    files,
		Analyzer:  analyzer,
		Legacy:    phototag.NewLegacyClassifier(labelModel),
		Gazetteer: gazetteer,
		Metrics:   metrics,
		Retag: &retag.Job{
			Analyzer:  analyzer,
			Photos:    photos,
			Files:     files,
			Gazetteer: gazetteer,
			Workers:   cfg.Analysis.RetagWorkers,
		},
		Models: func() map[string]bool {
			m := map[string]bool{
				"scene":  sceneModel.Loaded(),
				"labels": labelModel.Loaded(),
			}
			if depthModel != nil {
				m["depth"] = depthModel.Loaded()
			}
			return m
		},
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		TempDir:        os.TempDir(),
	}
	if cfg.Geocoder.Enabled {
		deps.Geocoder = geocode.New(geocode.Config{
			BaseURL:   cfg.Geocoder.BaseURL,
			UserAgent: cfg.Geocoder.UserAgent,
			Timeout:   cfg.Geocoder.Timeout(),
		})
	}

	srv := server.New(deps)
	if err := srv.IndexExisting(); err != nil {
		slog.Warn("phototagd: duplicate index not built", "error", err.Error())
	}

	if strings.ToLower(cfg.Log.Level) != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := srv.Router()
	if cfg.Storage.Backend == "disk" {
		router.Static(cfg.Storage.URLPrefix, cfg.Storage.PhotoDir)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("phototagd: starting server", "addr", httpServer.Addr, "storage", cfg.Storage.Backend)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("phototagd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (app *App) assetStore(ctx context.Context) (assets.Store, error) {
	s := app.config.Storage
	if s.Backend == "minio" {
		return assets.NewMinioStore(ctx, s.MinIO)
	}
	return assets.NewDiskStore(s.PhotoDir, s.URLPrefix)
}

func setupLogging(cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}
