package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"agentworld/db"
	"agentworld/internal/adapter/archive"
	httpadapter "agentworld/internal/adapter/http"
	metricsinmem "agentworld/internal/adapter/metrics/inmemory"
	"agentworld/internal/adapter/reasoning/scripted"
	gormrepo "agentworld/internal/adapter/repo/gorm"
	"agentworld/internal/adapter/repo/memory"
	"agentworld/internal/adapter/toolsource/static"
	"agentworld/internal/adapter/toolsource/yamlfile"
	wsadapter "agentworld/internal/adapter/ws"
	"agentworld/internal/app/actions"
	"agentworld/internal/app/catalog"
	"agentworld/internal/app/deploy"
	"agentworld/internal/app/observe"
	"agentworld/internal/app/ports"
	"agentworld/internal/app/replay"
	"agentworld/internal/app/tools"
	"agentworld/internal/domain/engine"
	"agentworld/internal/domain/schema"
	"agentworld/internal/platform/config"

	"github.com/cloudwego/hertz/pkg/app/server"
	"golang.org/x/sync/errgroup"
)

type repos struct {
	tx        ports.TxManager
	events    ports.DeploymentEventRepository
	summaries ports.DeploymentSummaryRepository
	snapshots ports.WorldSnapshotRepository
}

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		config.Exitf("agentworld: %v", err)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := memory.NewStore()
	worlds := memory.NewWorldStore(store)
	r, err := buildRepos(ctx, cfg, store, logger)
	if err != nil {
		config.Exitf("agentworld: %v", err)
	}
	seeds, err := config.LoadWorlds(cfg.WorldsFile)
	if err != nil {
		config.Exitf("agentworld: %v", err)
	}
	if err := seedWorlds(ctx, worlds, seeds, r.snapshots, logger); err != nil {
		config.Exitf("agentworld: %v", err)
	}

	registry := schema.DefaultRegistry()
	toolFile := yamlfile.New(cfg.ToolsFile)
	cat := catalog.New(registry, catalog.MultiSource{static.GridNavigationDefaults(), toolFile}, logger)
	kpiRecorder := metricsinmem.NewRecorder()

	deployUC := deploy.UseCase{
		Worlds:        worlds,
		Directory:     worlds,
		Actions:       registry,
		Catalog:       cat,
		Reasoning:     scripted.Service{Logger: logger},
		Engines:       engine.Factory{},
		TxManager:     r.tx,
		Events:        r.events,
		Summaries:     r.summaries,
		Snapshots:     r.snapshots,
		Metrics:       kpiRecorder,
		Logger:        logger,
		MaxTurns:      cfg.MaxTurns,
		TurnTimeout:   cfg.TurnTimeout,
		ObserveRadius: cfg.ObserveRadius,
	}
	if cfg.ArchiveDir != "" {
		a := archive.NewTranscriptArchive(cfg.ArchiveDir)
		defer a.Close()
		deployUC.Archive = a
	}

	h := httpadapter.Handler{
		DeployUC:  deployUC,
		ActionsUC: actions.UseCase{Worlds: worlds, Actions: registry},
		ObserveUC: observe.UseCase{Worlds: worlds, Directory: worlds},
		ReplayUC:  replay.UseCase{Events: r.events, Summaries: r.summaries},
		ToolsUC:   tools.UseCase{Catalog: cat, Store: toolFile, Logger: logger},
		KPI:       kpiRecorder,
		Logger:    logger,

		CORSOrigins: cfg.CORSOrigins,
	}

	hz := server.Default(server.WithHostPorts(cfg.HTTPAddr))
	h.RegisterRoutes(hz)

	var wsSrv *http.Server
	if cfg.WSAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws/deployments", wsadapter.NewServer(deployUC, cfg.CORSOrigins, logger).Handler())
		wsSrv = &http.Server{Addr: cfg.WSAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "worlds", len(seeds))
		return hz.Run()
	})
	if wsSrv != nil {
		g.Go(func() error {
			logger.Info("websocket listening", "addr", cfg.WSAddr)
			if err := wsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var errs []error
		if err := hz.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if wsSrv != nil {
			if err := wsSrv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// buildRepos keeps everything in memory unless a database DSN is configured.
func buildRepos(ctx context.Context, cfg config.Server, store *memory.Store, logger *slog.Logger) (repos, error) {
	if strings.TrimSpace(cfg.DBDSN) == "" {
		logger.Info("no database configured, deployments are kept in memory")
		return repos{
			tx:        memory.NewTxManager(store),
			events:    memory.NewDeploymentEventRepo(store),
			summaries: memory.NewDeploymentSummaryRepo(store),
			snapshots: memory.NewWorldSnapshotRepo(store),
		}, nil
	}
	gdb, err := gormrepo.OpenPostgres(cfg.DBDSN, gormrepo.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpen,
		MaxIdleConns:    cfg.DBMaxIdle,
		ConnMaxLifetime: cfg.DBMaxLifetime,
	})
	if err != nil {
		return repos{}, err
	}
	if cfg.AutoMigrate {
		if err := gormrepo.ApplyMigrations(ctx, gdb, db.Migrations(), logger); err != nil {
			return repos{}, err
		}
	}
	return repos{
		tx:        gormrepo.NewTxManager(gdb),
		events:    gormrepo.NewDeploymentEventRepo(gdb),
		summaries: gormrepo.NewDeploymentSummaryRepo(gdb),
		snapshots: gormrepo.NewWorldSnapshotRepo(gdb),
	}, nil
}

// seedWorlds registers every seed, restoring the last persisted state of a
// world when one exists.
func seedWorlds(ctx context.Context, worlds memory.WorldStore, seeds []config.Seeded, snapshots ports.WorldSnapshotRepository, logger *slog.Logger) error {
	for _, s := range seeds {
		state := s.State
		if snapshots != nil {
			saved, err := snapshots.LoadSnapshot(ctx, s.Meta.ID)
			switch {
			case err == nil:
				state = saved
				logger.Info("world restored from snapshot", "world_id", s.Meta.ID, "turn", saved.Turn)
			case !errors.Is(err, ports.ErrNotFound):
				return err
			}
		}
		if err := worlds.Put(s.Meta, state); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
