// Package logger wraps zerolog with env driven defaults and request scoped fields
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"formdata/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Options configures the root logger
type Options struct {
	Level        string
	Format       string // "console" or "json"
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv reads LOG_* through the raw view, which cannot log and so cannot cycle back here
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       rc.Get("LEVEL", "debug"),
		Format:      strings.ToLower(rc.Get("FORMAT", "console")),
		Service:     rc.Get("SERVICE", ""),
		Component:   rc.Get("COMPONENT", ""),
		WithCaller:  rc.GetBool("CALLER", false),
		SampleEvery: rc.GetInt("SAMPLE_EVERY", 0),
	}
}

// Logger is the project wide logging type
type Logger = zerolog.Logger

var (
	once sync.Once
	root atomic.Pointer[zerolog.Logger]
)

// Get returns the root logger, initializing it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// Init builds the root logger; only the first call has any effect
func Init(opt Options) {
	once.Do(func() { root.Store(build(opt)) })
}

func build(opt Options) *Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stdout
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zc := zerolog.New(w).Level(ParseLevel(opt.Level)).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok {
		zc = zc.Str("go_version", bi.GoVersion)
	}
	if opt.Service != "" {
		zc = zc.Str("service", opt.Service)
	}
	if opt.Component != "" {
		zc = zc.Str("component", opt.Component)
	}
	for k, v := range opt.StaticFields {
		zc = zc.Str(k, v)
	}
	if opt.WithCaller {
		zc = zc.Caller()
	}

	l := zc.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return &l
}

// ParseLevel maps a level name to zerolog; unknown names mean debug
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.DebugLevel
	}
	return lvl
}

type scopeKey struct{}

// scope holds the request fields C adds to every line
type scope struct{ reqID, uploadID string }

// WithRequest records request and upload ids on ctx; empty values keep what is already there
func WithRequest(ctx context.Context, reqID, uploadID string) context.Context {
	sc, _ := ctx.Value(scopeKey{}).(scope)
	if reqID != "" {
		sc.reqID = reqID
	}
	if uploadID != "" {
		sc.uploadID = uploadID
	}
	return context.WithValue(ctx, scopeKey{}, sc)
}

// C returns a child of the root logger carrying the request_id and upload_id from ctx
func C(ctx context.Context) *Logger {
	sc, _ := ctx.Value(scopeKey{}).(scope)
	zc := Get().With()
	if sc.reqID != "" {
		zc = zc.Str("request_id", sc.reqID)
	}
	if sc.uploadID != "" {
		zc = zc.Str("upload_id", sc.uploadID)
	}
	l := zc.Logger()
	return &l
}

// Named returns a child logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
