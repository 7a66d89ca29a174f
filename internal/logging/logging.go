// Package logging wraps zerolog the way CrlsMrls-dummybox/logger does:
// a package-level Init, a context-carried logger, and a helper to stamp
// a correlation id — here the scan id — onto every log line for a scan.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Init initializes the global logger at the given level, writing to w
// (os.Stdout if nil).
func Init(level string, w io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stdout
	}

	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.CallerFieldName = "source"

	l := zerolog.New(w).With().Timestamp().Caller().Logger()
	zerolog.DefaultContextLogger = &l
}

// FromContext returns the logger attached to ctx, or the process
// default if none was attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		if zerolog.DefaultContextLogger != nil {
			return zerolog.DefaultContextLogger
		}
		fallback := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
		return &fallback
	}
	return l
}

// WithScanID returns a context and logger both carrying scanId as a
// structured field, so every log line emitted for a scan can be
// correlated without threading the id through every function signature.
func WithScanID(ctx context.Context, scanID string) (context.Context, *zerolog.Logger) {
	l := FromContext(ctx).With().Str("scan_id", scanID).Logger()
	return l.WithContext(ctx), &l
}
