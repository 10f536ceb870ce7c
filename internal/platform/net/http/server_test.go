package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"formdata/internal/platform/config"

	"github.com/go-chi/chi/v5"
)

func TestNewServer_Config(t *testing.T) {
	t.Setenv("SRVTEST_PORT", ":4123")
	t.Setenv("SRVTEST_READ_HEADER_TIMEOUT", "3s")
	t.Setenv("SRVTEST_MAX_HEADER_BYTES", "2048")

	var mounted bool
	s := NewServer(config.New().Prefix("SRVTEST_"), func(m *chi.Mux) {
		mounted = true
		m.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})
	if !mounted {
		t.Fatal("options not applied")
	}
	if s.Addr() != ":4123" || s.srv.ReadHeaderTimeout != 3*time.Second || s.srv.MaxHeaderBytes != 2048 {
		t.Fatalf("server %+v", s.srv)
	}
	if s.srv.IdleTimeout != 2*time.Minute || s.srv.WriteTimeout != 0 {
		t.Fatalf("timeouts idle=%s write=%s", s.srv.IdleTimeout, s.srv.WriteTimeout)
	}
	if rec := hit(t, s.Router().Mux(), http.MethodGet, "/ping"); rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestServer_RunAndShutdown(t *testing.T) {
	t.Setenv("SRVTEST_PORT", "127.0.0.1:0")
	s := NewServer(config.New().Prefix("SRVTEST_"))

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestServer_RunListenError(t *testing.T) {
	t.Setenv("SRVTEST_PORT", "bad-addr")
	if err := NewServer(config.New().Prefix("SRVTEST_")).Run(context.Background()); err == nil {
		t.Fatal("want listen error")
	}
}
