package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type loggerOptions struct {
	out   io.Writer
	level string
}

type LoggerOption func(*loggerOptions)

// WithOutput redirects log output, stdout by default
func WithOutput(w io.Writer) LoggerOption {
	return func(o *loggerOptions) { o.out = w }
}

// WithLevel overrides the environment's default level. Empty keeps the default.
func WithLevel(level string) LoggerOption {
	return func(o *loggerOptions) { o.level = level }
}

// ParseLevel accepts debug, info, warn and error in any case
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return l, nil
}

// NewLogger logs JSON at info in production and text at debug elsewhere
func NewLogger(env string, opts ...LoggerOption) *slog.Logger {
	o := loggerOptions{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	var handler slog.Handler

	hopts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	if env == "production" {
		hopts.Level = slog.LevelInfo
	} else {
		hopts.Level = slog.LevelDebug
	}
	if o.level != "" {
		if l, err := ParseLevel(o.level); err == nil {
			hopts.Level = l
		}
	}

	if env == "production" {
		handler = slog.NewJSONHandler(o.out, hopts)
	} else {
		handler = slog.NewTextHandler(o.out, hopts)
	}

	return slog.New(handler).With(slog.String("service", "faceratio"))
}
