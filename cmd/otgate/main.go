package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/otgate/internal/config"
	"github.com/udisondev/otgate/internal/crypto"
	"github.com/udisondev/otgate/internal/db"
	"github.com/udisondev/otgate/internal/game"
	"github.com/udisondev/otgate/internal/gameserver"
	"github.com/udisondev/otgate/internal/login"
	"github.com/udisondev/otgate/internal/protocol"
	"github.com/udisondev/otgate/internal/status"
)

const ConfigPath = "config/otgate.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("OTGATE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	slog.Info("otgate starting", "world", cfg.ServerName)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	rsaKey, err := crypto.LoadPrivateKey(cfg.RSAKeyFile)
	if err != nil {
		return fmt.Errorf("loading RSA key: %w", err)
	}
	slog.Info("RSA key loaded", "file", cfg.RSAKeyFile)

	// Process-wide state comes up before any listener binds.
	arena := protocol.NewArena()
	statusHolder := &status.Holder{}
	world := game.New(cfg, database, arena, statusHolder)

	gameService := gameserver.NewServer(cfg, world, rsaKey, arena)
	statusService := status.NewServer(cfg, statusHolder)
	loginService := login.NewServer(cfg, database)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := world.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("game loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// Refuse logins that race the listener teardown.
		<-gctx.Done()
		world.Shutdown()
		return nil
	})

	g.Go(func() error {
		if err := gameService.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("game service: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := statusService.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("status service: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := loginService.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("login service: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
