package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"formdata/internal/platform/net/middleware"
)

func TestAccessLog_PassesThrough(t *testing.T) {
	tests := []struct {
		name   string
		slow   time.Duration
		status int
	}{
		{name: "explicit status", status: http.StatusCreated},
		{name: "implicit 200 marked slow", slow: time.Nanosecond},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := middleware.AccessLog(tc.slow)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				if tc.status != 0 {
					w.WriteHeader(tc.status)
				}
				_, _ = io.WriteString(w, "up")
				_, _ = io.WriteString(w, "loaded")
			}))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/uploads", strings.NewReader("body")))

			want := tc.status
			if want == 0 {
				want = http.StatusOK
			}
			if rr.Code != want || rr.Body.String() != "uploaded" {
				t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
			}
		})
	}
}
