package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"gopkg.in/natefinch/lumberjack.v2"
	"tailscale.com/tsnet"

	"github.com/meltforce/liftcoach/internal/aiplan"
	"github.com/meltforce/liftcoach/internal/backfill"
	"github.com/meltforce/liftcoach/internal/config"
	"github.com/meltforce/liftcoach/internal/mcp"
	"github.com/meltforce/liftcoach/internal/recommend"
	"github.com/meltforce/liftcoach/internal/server"
	"github.com/meltforce/liftcoach/internal/session"
	"github.com/meltforce/liftcoach/internal/snapshot"
	"github.com/meltforce/liftcoach/internal/storage"
	"github.com/meltforce/liftcoach/internal/suggest"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)
	log.Info("LiftCoach starting", "version", Version)

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	snapshots, err := snapshot.OpenSQLite(cfg.Snapshot.Path)
	if err != nil {
		log.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	defer snapshots.Close()

	params := suggest.DefaultParams().WithEmptyBar(cfg.Session.EmptyBarWeight)
	params.WarmupReps = cfg.Session.WarmupReps
	engine := suggest.New(params)

	finalizer := session.WriteSequence{Sessions: db, Records: db, Stats: db, Log: log}
	sessions := session.NewManager(session.Config{
		WarmupSeconds: cfg.Session.WarmupSeconds,
		RestSeconds:   cfg.Session.RestSeconds,
		WarmupPool:    cfg.Session.WarmupPool,
		Suggest:       params,
	}, session.Deps{
		Store:     snapshots,
		Records:   db,
		Finalizer: finalizer,
		Log:       log,
	})
	defer sessions.Close()

	var planner server.Planner
	if cfg.AI.Endpoint != "" {
		planner = aiplan.NewService(
			aiplan.NewHTTPGenerator(cfg.AI.Endpoint, cfg.AI.APIKey, cfg.AI.Timeout()),
			&storage.AIRateLimiter{DB: db, Limit: cfg.AI.DailyLimit},
			log,
		)
		log.Info("ai plan generation enabled", "daily_limit", cfg.AI.DailyLimit)
	}

	srv := server.New(server.Deps{
		Store:    db,
		Sessions: sessions,
		Engine:   engine,
		Cache:    recommend.NewCache(),
		Planner:  planner,
		Importer: &backfill.Importer{Catalog: db, Sessions: db, Finalizer: finalizer, Log: log},
	}, cfg.Auth.APIKey, log)

	// MCP over streamable HTTP, sharing the REST identity
	mcpSrv := mcp.New(db, mcp.ManagerSessions{Manager: sessions}, engine, Version, log)
	srv.SetMCP(mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return mcp.WithUserID(ctx, server.RequestUserID(r))
		}),
	))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// newLogger writes text logs to stdout and, when a file is configured, to a
// rotating log file as well.
func newLogger(c config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if c.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
		})
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
