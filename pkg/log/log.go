package log

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

var (
	defaultLogLevel slog.LevelVar
	defaultLogger   = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     &defaultLogLevel,
	}))
)

func init() {
	defaultLogLevel.Set(slog.LevelInfo)
}

type contextKey struct{}

var loggerKey = contextKey{}

type cycleKey struct{}

// Ctx returns the logger from the context. If no logger is found, it returns the default logger.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

// With returns a new context with the given logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithCycle starts a new fetch cycle. The returned context carries a logger
// with a cycleID attribute so every line logged during one poll can be
// correlated.
func WithCycle(ctx context.Context) context.Context {
	id := uuid.NewString()
	ctx = context.WithValue(ctx, cycleKey{}, id)
	return With(ctx, Ctx(ctx).With(slog.String("cycleID", id)))
}

// CycleID returns the id set by WithCycle or an empty string.
func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(cycleKey{}).(string)
	return id
}

func SetDefaultLogLevel(level slog.Level) {
	defaultLogLevel.Set(level)
}
