package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/api"
	"github.com/decentralizedkaggle/DKaggle/internal/api/admin"
	"github.com/decentralizedkaggle/DKaggle/internal/api/user"
	"github.com/decentralizedkaggle/DKaggle/internal/catalog"
	"github.com/decentralizedkaggle/DKaggle/internal/config"
	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/leaderboard"
	"github.com/decentralizedkaggle/DKaggle/internal/metrics"
	"github.com/decentralizedkaggle/DKaggle/internal/pubsub"
	"github.com/decentralizedkaggle/DKaggle/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var Version = "dev-build"

const shutdownTimeout = 10 * time.Second

func newLogger(cfg config.Logger) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Level == "debug" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		if cfg.Level != "" {
			level, err := zap.ParseAtomicLevel(cfg.Level)
			if err != nil {
				return nil, err
			}
			zc.Level = level
		}
	}
	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}
	return zc.Build()
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, name string, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("starting %s server at %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	zap.S().Infof("shutting down %s server...", name)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s server shutdown: %w", name, err)
	}
	return <-errCh
}

func main() {

	fmt.Fprintf(os.Stderr, "DKaggle %s - Decentralized Data Science Contests\n\n", Version)

	// config
	var configPath string
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("failed to load .env: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// logger
	logger, err := newLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// database
	db, err := database.Init(cfg.Storage)
	if err != nil {
		zap.S().Fatalf("failed to initialize database: %v", err)
	}
	zap.S().Infof("%s database initialized successfully", cfg.Storage.Driver)
	store := database.NewContestStore(db)

	// repair leaderboards left inconsistent by earlier versions or manual edits
	if _, err := catalog.RepairLeaderboards(ctx, store); err != nil {
		zap.S().Errorf("failed to repair leaderboards: %v", err)
	}

	rec := metrics.New(prometheus.DefaultRegisterer)
	defaults := catalog.DefaultsFrom(cfg.Contest)

	// seed contests
	if cfg.Contest.SeedDir != "" {
		report, err := catalog.LoadSeedDir(ctx, db, cfg.Contest.SeedDir, defaults, time.Now())
		if err != nil {
			zap.S().Fatalf("failed to load seed contests: %v", err)
		}
		for range report.Created {
			rec.ContestCreated()
		}
	}

	uploader, err := storage.New(cfg.Storage.Assets)
	if err != nil {
		zap.S().Fatalf("failed to initialize asset storage: %v", err)
	}

	broker := pubsub.NewBroker(16)
	svc := &api.Services{
		DB:       db,
		Store:    store,
		Broker:   broker,
		Uploader: uploader,
		Metrics:  rec,
		Gatherer: prometheus.DefaultGatherer,
		Sweeper:  catalog.NewSweeper(db, time.Duration(cfg.Contest.SweepIntervalSeconds)*time.Second, rec),
		Leaderboard: leaderboard.NewService(store,
			leaderboard.WithMaxAttempts(cfg.Contest.SubmitRetries),
			leaderboard.WithPublisher(broker),
			leaderboard.WithMetrics(rec),
		),
	}

	// API routers
	userEngine := user.NewUserRouter(cfg, svc)
	adminEngine := admin.NewAdminRouter(cfg, svc)

	// start servers and the status sweeper
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serve(gctx, "user", &http.Server{Addr: cfg.Listen, Handler: userEngine})
	})
	if cfg.Admin.Enabled {
		g.Go(func() error {
			return serve(gctx, "admin", &http.Server{Addr: cfg.Admin.Listen, Handler: adminEngine})
		})
	}
	g.Go(func() error {
		return svc.Sweeper.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		zap.S().Fatalf("server stopped: %v", err)
	}
	zap.S().Info("server exited")
}
