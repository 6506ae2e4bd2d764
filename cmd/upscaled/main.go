package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"upscaled/internal/config"
	"upscaled/internal/controller"
	"upscaled/internal/engine"
	"upscaled/internal/httpapi"
	"upscaled/internal/modelcache"
	"upscaled/internal/registry"
	"upscaled/pkg/types"
)

const defaultWeightBaseURL = "https://github.com/xinntao/Real-ESRGAN/releases/download/v0.2.5.0"

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	// Flags with environment variable defaults
	addr := flag.String("addr", envStr("UPSCALED_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	cachePath := flag.String("cache-path", envStr("UPSCALED_CACHE_PATH", "upscaled-weights.db"), "Path to the persistent weight cache")
	baseURL := flag.String("weight-base-url", envStr("UPSCALED_WEIGHT_BASE_URL", defaultWeightBaseURL), "Base URL weight files are fetched from")
	defaultModel := flag.String("default-model", envStr("UPSCALED_DEFAULT_MODEL", ""), "Model id loaded at startup (empty starts uninitialized)")
	tileSize := flag.Int("tile-size", envInt("UPSCALED_TILE_SIZE", 0), "Tile size in pixels (0 uses the built-in default)")
	tilePadding := flag.Int("tile-padding", envInt("UPSCALED_TILE_PADDING", -1), "Tile padding in pixels (-1 uses the built-in default)")
	gpuMode := flag.String("gpu", envStr("UPSCALED_GPU", "auto"), "GPU mode: auto, cuda, or cpu")
	threads := flag.Int("threads", envInt("UPSCALED_THREADS", 0), "Inference thread count (0 lets the backend decide)")
	logLevel := flag.String("log-level", envStr("UPSCALED_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	configPath := flag.String("config", envStr("UPSCALED_CONFIG", ""), "Optional config file (.toml, .yaml, .json); flags override it")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(*logLevel); err == nil {
		log = log.Level(lvl)
	}

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("loading config file")
		}
		applyFileConfig(cfg, addr, cachePath, baseURL, defaultModel, tileSize, tilePadding, gpuMode, threads)
	}

	store, err := modelcache.OpenBolt(*cachePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *cachePath).Msg("opening weight cache")
	}
	defer store.Close()

	catalog := registry.New(*baseURL)
	loader := modelcache.NewLoader(store, catalog, log)

	ctrl := controller.NewWithConfig(controller.Config{
		Catalog:     catalog,
		Store:       store,
		Weights:     loader,
		Sessions:    engine.NewSessionFactory(),
		TileSize:    *tileSize,
		TilePadding: *tilePadding,
		GPUMode:     engine.GPUMode(*gpuMode),
		NumThreads:  *threads,
		Logger:      log,
	})
	defer ctrl.Close()

	if backend, ok := ctrl.Capabilities(); !ok {
		log.Warn().Msg("no inference backend compiled in; model operations will fail (build with -tags=onnx)")
	} else {
		log.Info().Str("backend", backend).Msg("inference backend available")
	}

	if *defaultModel != "" {
		if err := ctrl.Initialize(context.Background(), types.SwitchRequest{Model: *defaultModel}); err != nil {
			log.Fatal().Err(err).Str("model", *defaultModel).Msg("loading default model")
		}
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)

	mux := httpapi.NewMux(ctrl)
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Info().Str("addr", *addr).Str("cache", *cachePath).Msg("upscaled listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
}

// applyFileConfig fills in settings from the config file for every flag the
// user left at its default.
func applyFileConfig(cfg config.Config, addr, cachePath, baseURL, defaultModel *string, tileSize, tilePadding *int, gpuMode *string, threads *int) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if cfg.Addr != "" && !set["addr"] {
		*addr = cfg.Addr
	}
	if cfg.CachePath != "" && !set["cache-path"] {
		*cachePath = cfg.CachePath
	}
	if cfg.WeightBaseURL != "" && !set["weight-base-url"] {
		*baseURL = cfg.WeightBaseURL
	}
	if cfg.DefaultModel != "" && !set["default-model"] {
		*defaultModel = cfg.DefaultModel
	}
	if cfg.TileSize > 0 && !set["tile-size"] {
		*tileSize = cfg.TileSize
	}
	if cfg.TilePadding > 0 && !set["tile-padding"] {
		*tilePadding = cfg.TilePadding
	}
	if cfg.GPUMode != "" && !set["gpu"] {
		*gpuMode = cfg.GPUMode
	}
	if cfg.Threads > 0 && !set["threads"] {
		*threads = cfg.Threads
	}
}
