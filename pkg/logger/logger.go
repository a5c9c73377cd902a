// Package logger provides a structured, levelled logger built on log/slog.
//
// WithCtx returns the request-scoped logger injected by the Logger
// middleware, so every line a handler writes carries its request_id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("payment approved", "order_id", id)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/teastall/teastall/config"
)

var L *slog.Logger

func init() {
	L = slog.New(consoleHandler(os.Stdout))
	slog.SetDefault(L)
}

func consoleHandler(w io.Writer) slog.Handler {
	if config.IsProduction() {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// Tee replaces the base logger with one that writes to the console and to
// every extra handler.
func Tee(extra ...slog.Handler) {
	hs := append([]slog.Handler{consoleHandler(os.Stdout)}, extra...)
	L = slog.New(NewMultiHandler(hs...))
	slog.SetDefault(L)
}

// SetOutput points the base logger at w. Used by tests and the CLI.
func SetOutput(w io.Writer) {
	L = slog.New(consoleHandler(w))
	slog.SetDefault(L)
}

type ctxKey struct{}

// WithCtx returns the logger stored in ctx by the Logger middleware, or the
// base logger when none is present.
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores log in ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }

func Info(msg string, args ...any) { L.Info(msg, args...) }

func Warn(msg string, args ...any) { L.Warn(msg, args...) }

func Error(msg string, args ...any) { L.Error(msg, args...) }
