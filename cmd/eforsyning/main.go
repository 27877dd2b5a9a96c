package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"

	"github.com/kpoppel/go-eforsyning/pkg/log"
	"github.com/kpoppel/go-eforsyning/pkg/poller"
	"github.com/kpoppel/go-eforsyning/pkg/portal"
	"github.com/kpoppel/go-eforsyning/pkg/server"
	"github.com/kpoppel/go-eforsyning/pkg/storage"
)

func main() {
	// init packages
	c := portal.Configured()
	s := storage.Configured()
	p := poller.Configured(c, s)

	// init server
	srv := server.Configured(p, s)

	pollInterval := lflag.Duration("poll-interval", 0, "Poll the portal in the background at this interval. 0 leaves polling to POST /api/update.")

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}
	log.SetDefaultLogLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	log.Ctx(ctx).DebugContext(ctx, "logger configured", slog.String("level", level.String()))

	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	if *pollInterval > 0 {
		go p.Run(ctx, *pollInterval)
	}

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
