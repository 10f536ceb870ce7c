// Package http serves the meta endpoints: liveness, readiness, build info and form handling
package http

import (
	"context"
	"net/http"
	"time"

	"formdata/internal/core/formdata"
	"formdata/internal/core/version"
	"formdata/internal/modkit/httpkit"
	"formdata/internal/platform/net/http/formkit"
)

// Pinger is satisfied by store seams that can report readiness
type Pinger interface {
	Ping(context.Context) error
}

// Deps are the handler dependencies; nil backends are reported as skipped
type Deps struct {
	StartedAt time.Time
	PG        any
	CH        any
	Forms     *formkit.Kit
}

type handlers struct {
	deps         Deps
	readyTimeout time.Duration
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d, readyTimeout: 2 * time.Second}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/forms", h.forms)
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"formdata-api"`
	Started string `json:"started" example:"2026-10-01T13:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// ReadyCheck is the result of pinging one backend
type ReadyCheck struct {
	Name   string `json:"name"   example:"pg"`
	Status string `json:"status" example:"ok"` // ok, fail, skipped or unknown
	Error  string `json:"error,omitempty"`
}

// ReadyResponse summarizes readiness
// degraded means a backend is off or cannot be pinged; uploads still parse in that state
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"` // ok, degraded or fail
	Checks []ReadyCheck `json:"checks"`
}

// FormsResponse reports how multipart bodies are handled
type FormsResponse struct {
	Engine              string           `json:"engine"  example:"stream"`
	Storage             string           `json:"storage" example:"file"`
	Limits              map[string]int64 `json:"limits"`
	RemoveFilesFromBody bool             `json:"remove_files_from_body"`
	AutoParse           bool             `json:"auto_parse"`
	ParseOnDetect       bool             `json:"parse_on_detect"`
}

// @Summary Liveness and uptime
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: version.Info().Service,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(time.Since(h.deps.StartedAt) / time.Second),
	}, nil
}

// @Summary Readiness with backend checks
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.readyTimeout)
	defer cancel()

	resp := ReadyResponse{Status: "ok"}
	for _, b := range []struct {
		name string
		seam any
	}{{"pg", h.deps.PG}, {"ch", h.deps.CH}} {
		c := probe(ctx, b.name, b.seam)
		switch {
		case c.Status == "fail":
			resp.Status = "fail"
		case c.Status != "ok" && resp.Status == "ok":
			resp.Status = "degraded"
		}
		resp.Checks = append(resp.Checks, c)
	}
	return resp, nil
}

func probe(ctx context.Context, name string, seam any) ReadyCheck {
	if seam == nil {
		return ReadyCheck{Name: name, Status: "skipped"}
	}
	p, ok := seam.(Pinger)
	if !ok {
		return ReadyCheck{Name: name, Status: "unknown"}
	}
	if err := p.Ping(ctx); err != nil {
		return ReadyCheck{Name: name, Status: "fail", Error: err.Error()}
	}
	return ReadyCheck{Name: name, Status: "ok"}
}

// @Summary Build and version info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(), nil
}

// @Summary Multipart engine, storage and configured limits
// @Tags Meta
// @Produce json
// @Success 200 {object} FormsResponse
// @Router /meta/forms [get]
func (h *handlers) forms(_ *http.Request) (any, error) {
	if h.deps.Forms == nil {
		return FormsResponse{Limits: map[string]int64{}}, nil
	}
	o := h.deps.Forms.Options()
	return FormsResponse{
		Engine:              o.Engine.Name(),
		Storage:             o.Storage.Name(),
		Limits:              limits(o.Limits),
		RemoveFilesFromBody: o.RemoveFilesFromBody,
		AutoParse:           o.AutoParse,
		ParseOnDetect:       o.ParseOnDetect,
	}, nil
}

// limits lists the configured bounds; unset ones fall back to engine defaults and are left out
func limits(l formdata.Limits) map[string]int64 {
	out := map[string]int64{}
	for name, b := range map[string]formdata.Bound{
		"fields":          l.Fields,
		"field_size":      l.FieldSize,
		"field_name_size": l.FieldNameSize,
		"files":           l.Files,
		"file_size":       l.FileSize,
		"parts":           l.Parts,
		"header_pairs":    l.HeaderPairs,
	} {
		if b.Set {
			out[name] = b.N
		}
	}
	return out
}
