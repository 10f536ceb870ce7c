package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func hit(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestAdaptChi_RoutesGroupsAndMiddleware(t *testing.T) {
	r := AdaptChi(chi.NewRouter())
	r.Route("/uploads", func(up Router) {
		up.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.Header().Set("X-Scope", "uploads")
				next.ServeHTTP(w, req)
			})
		})
		up.Post("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusCreated) })
		up.Group(func(g Router) {
			g.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
				_, _ = w.Write([]byte(chi.URLParam(req, "id")))
			})
		})
	})
	r.Handle("/raw", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) }))

	tests := []struct {
		method, path string
		code         int
		body, scope  string
	}{
		{http.MethodPost, "/uploads/", http.StatusCreated, "", "uploads"},
		{http.MethodGet, "/uploads/abc", http.StatusOK, "abc", "uploads"},
		{http.MethodGet, "/raw", http.StatusAccepted, "", ""},
		{http.MethodGet, "/elsewhere", http.StatusNotFound, "", ""},
	}
	for _, tc := range tests {
		rec := hit(t, r.Mux(), tc.method, tc.path)
		if rec.Code != tc.code {
			t.Fatalf("%s %s: status %d want %d", tc.method, tc.path, rec.Code, tc.code)
		}
		if tc.body != "" && rec.Body.String() != tc.body {
			t.Fatalf("%s %s: body %q", tc.method, tc.path, rec.Body.String())
		}
		if got := rec.Header().Get("X-Scope"); got != tc.scope {
			t.Fatalf("%s %s: scope %q want %q", tc.method, tc.path, got, tc.scope)
		}
	}
}

func TestMountProfiler(t *testing.T) {
	on := AdaptChi(chi.NewRouter())
	MountProfiler(on, "/debug", true)
	if rec := hit(t, on.Mux(), http.MethodGet, "/debug/pprof/cmdline"); rec.Code != http.StatusOK {
		t.Fatalf("enabled profiler status %d", rec.Code)
	}

	off := AdaptChi(chi.NewRouter())
	MountProfiler(off, "/debug", false)
	if rec := hit(t, off.Mux(), http.MethodGet, "/debug/pprof/cmdline"); rec.Code != http.StatusNotFound {
		t.Fatalf("disabled profiler status %d", rec.Code)
	}
}
