// Copyright 2024 The beaconsync Authors
// This file is part of the beaconsync library.
//
// The beaconsync library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The beaconsync library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the beaconsync library. If not, see <http://www.gnu.org/licenses/>.


// Package log is a thin, slog-backed structured logger matching the shape
// of go-ethereum's current logging package: a Logger wrapping *slog.Logger,
// a process-wide Root logger, and a human-friendly terminal handler for
// interactive use alongside a JSON handler for machine consumption.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Level mirrors slog.Level with the names this codebase's authors use.
type Level = slog.Level

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelCrit  = slog.Level(12)
)

// Logger is the interface every component in this repository logs through.
type Logger interface {
	With(ctx ...any) Logger
	New(ctx ...any) Logger

	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)

	Enabled(lvl Level) bool
}

type logger struct {
	inner *slog.Logger
}

// NewLogger wraps an existing slog.Handler into a Logger.
func NewLogger(h slog.Handler) Logger {
	return &logger{inner: slog.New(h)}
}

func (l *logger) write(lvl Level, msg string, ctx ...any) {
	l.inner.Log(context.Background(), lvl, msg, ctx...)
}

func (l *logger) Trace(msg string, ctx ...any) { l.write(LevelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...any) { l.write(LevelDebug, msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.write(LevelInfo, msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.write(LevelWarn, msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.write(LevelError, msg, ctx...) }
func (l *logger) Crit(msg string, ctx ...any) {
	l.write(LevelCrit, msg, ctx...)
	os.Exit(1)
}

func (l *logger) With(ctx ...any) Logger { return &logger{inner: l.inner.With(ctx...)} }
func (l *logger) New(ctx ...any) Logger  { return l.With(ctx...) }

func (l *logger) Enabled(lvl Level) bool {
	return l.inner.Enabled(context.Background(), lvl)
}

var (
	rootMu sync.Mutex
	root   Logger = NewLogger(NewTerminalHandler(os.Stderr, false))
)

// Root returns the root logger used by package-level New/Info/... helpers.
func Root() Logger {
	rootMu.Lock()
	defer rootMu.Unlock()
	return root
}

// SetDefault installs l as the root logger.
func SetDefault(l Logger) {
	rootMu.Lock()
	defer rootMu.Unlock()
	root = l
}

// New creates a child of the root logger carrying the given context pairs.
func New(ctx ...any) Logger { return Root().New(ctx...) }

func Trace(msg string, ctx ...any) { Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { Root().Crit(msg, ctx...) }

// terminalHandler renders log records the way a developer staring at a
// terminal wants to read them: level, timestamp, message, then key=value
// pairs. The color flag is stored but output is always plain text.
type terminalHandler struct {
	mu     sync.Mutex
	out    io.Writer
	color  bool
	level  atomic.Int64
	attrs  []slog.Attr
}

// NewTerminalHandler returns a slog.Handler that writes human-readable
// lines to out; color is accepted but no colors are emitted.
func NewTerminalHandler(out io.Writer, color bool) slog.Handler {
	h := &terminalHandler{out: out, color: color}
	h.level.Store(int64(LevelInfo))
	return h
}

// NewTerminalHandlerWithLevel is NewTerminalHandler with an explicit
// minimum level, matching the constructor go-ethereum's own tests exercise.
func NewTerminalHandlerWithLevel(out io.Writer, lvl Level, color bool) slog.Handler {
	h := &terminalHandler{out: out, color: color}
	h.level.Store(int64(lvl))
	return h
}

func (h *terminalHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return int64(lvl) >= h.level.Load()
}

func lvlString(lvl slog.Level) string {
	switch {
	case lvl < LevelDebug:
		return "TRACE"
	case lvl < LevelInfo:
		return "DEBUG"
	case lvl < LevelWarn:
		return "INFO "
	case lvl < LevelError:
		return "WARN "
	case lvl < LevelCrit:
		return "ERROR"
	default:
		return "CRIT "
	}
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	fmt.Fprintf(h.out, "%s[%s] %-40s", lvlString(r.Level), ts.Format("01-02|15:04:05.000"), r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
		return true
	})
	fmt.Fprintln(h.out)
	return nil
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := &terminalHandler{out: h.out, color: h.color, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
	nh.level.Store(h.level.Load())
	return nh
}

func (h *terminalHandler) WithGroup(_ string) slog.Handler { return h }

// JSONHandler returns a machine-readable slog.Handler writing one JSON
// object per line, for production/daemon use.
func JSONHandler(out io.Writer) slog.Handler {
	return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: LevelTrace})
}

// GlogHandler adds a dynamically adjustable global verbosity on top of an
// inner handler, mirroring go-ethereum's glog_handler.go; per-file
// (vmodule) overrides and backtraces are not supported.
type GlogHandler struct {
	inner slog.Handler
	level *atomic.Int64
}

func NewGlogHandler(inner slog.Handler) *GlogHandler {
	lvl := new(atomic.Int64)
	lvl.Store(int64(LevelInfo))
	return &GlogHandler{inner: inner, level: lvl}
}

func (g *GlogHandler) Verbosity(lvl Level) { g.level.Store(int64(lvl)) }

// Vmodule is accepted for interface parity with go-ethereum's glog handler
// but per-file verbosity overrides are out of scope for this repository.
func (g *GlogHandler) Vmodule(string) {}

func (g *GlogHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return int64(lvl) >= g.level.Load()
}

func (g *GlogHandler) Handle(ctx context.Context, r slog.Record) error {
	return g.inner.Handle(ctx, r)
}

func (g *GlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &GlogHandler{inner: g.inner.WithAttrs(attrs), level: g.level}
}

func (g *GlogHandler) WithGroup(name string) slog.Handler {
	return &GlogHandler{inner: g.inner.WithGroup(name), level: g.level}
}
