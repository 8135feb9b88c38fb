package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xtding233/gacha-forge/internal/game"
	"github.com/xtding233/gacha-forge/internal/logger"
	"github.com/xtding233/gacha-forge/internal/rpc"
	"github.com/xtding233/gacha-forge/internal/server"
	"github.com/xtding233/gacha-forge/internal/service"
	"github.com/xtding233/gacha-forge/internal/store"
)

type config struct {
	ConfigDir   string
	DataDir     string
	DatabaseURL string
	Port        string
	GRPCPort    string
	Game        string
	Pool        string
	LogMode     string
	Seed        string
	Watch       time.Duration
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func loadConfigFromFlags() *config {
	cfg := new(config)
	flag.StringVar(&cfg.ConfigDir, "config", env("GACHA_CONFIG_DIR", "config"), "config base dir (contains games/)")
	flag.StringVar(&cfg.DataDir, "data", env("GACHA_DATA_DIR", "data"), "player data dir for the file store")
	flag.StringVar(&cfg.DatabaseURL, "db", env("DATABASE_URL", ""), "postgres url; empty uses the file store")
	flag.StringVar(&cfg.Port, "port", env("PORT", "8080"), "HTTP port")
	flag.StringVar(&cfg.GRPCPort, "grpc-port", env("GRPC_PORT", "9090"), "gRPC port; empty disables gRPC")
	flag.StringVar(&cfg.Game, "game", "", "game id; empty runs default.yaml alone")
	flag.StringVar(&cfg.Pool, "pool", "", "pool id")
	flag.StringVar(&cfg.LogMode, "log-mode", env("GACHA_LOG_MODE", "dev"), "log mode: dev|prod|silent")
	flag.StringVar(&cfg.Seed, "seed", "", "override rng seed")
	flag.DurationVar(&cfg.Watch, "watch", 2*time.Second, "config poll interval; 0 disables hot reload")
	flag.Parse()
	return cfg
}

func main() {
	cfg := loadConfigFromFlags()
	mode, err := logger.ParseMode(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logger.New(mode)
	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		return store.OpenPG(ctx, cfg.DatabaseURL)
	}
	return store.NewFileStore(cfg.DataDir)
}

func run(cfg *config, log *slog.Logger) error {
	var o game.Overrides
	if cfg.Seed != "" {
		o.Seed = &cfg.Seed
	}
	loader := game.NewLoader(cfg.ConfigDir, log)
	_, params, err := loader.Resolve(cfg.Game, cfg.Pool, o)
	if err != nil {
		return err
	}

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := service.New(params, st, log, nil)

	if cfg.Watch > 0 {
		w := game.NewFileWatcher(loader.Paths(), cfg.Game, cfg.Pool, cfg.Watch, func(changes []game.Change) {
			for _, c := range changes {
				log.Info("config changed", "layer", c.Layer, "path", c.Path, "removed", c.Removed)
			}
			loader.Invalidate()
			_, p, err := loader.Resolve(cfg.Game, cfg.Pool, o)
			if err != nil {
				// keep serving the last good config
				log.Error("config reload failed", "err", err)
				return
			}
			svc.Reload(p)
		})
		w.Start()
		defer w.Stop()
	}

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.New(svc, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		log.Info("http listening", "addr", httpSrv.Addr, "game", cfg.Game, "pool", cfg.Pool, "version", params.Version)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	grpcSrv := rpc.NewGRPCServer(svc, log)
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return err
		}
		go func() {
			log.Info("grpc listening", "addr", lis.Addr().String())
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	case err = <-errCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	grpcSrv.GracefulStop()
	if serr := httpSrv.Shutdown(ctx); serr != nil {
		log.Warn("http shutdown", "err", serr)
	}
	return err
}
