// Package module wires meta endpoints into the API
package module

import (
	"time"

	modkit "formdata/internal/modkit"
	"formdata/internal/modkit/httpkit"

	metahttp "formdata/internal/services/api/meta/http"
)

// Module serves health, readiness, version and form handling info
type Module struct {
	modkit.Base

	deps      modkit.Deps
	startedAt time.Time
}

// New constructs a meta module with the provided dependencies and options
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	return &Module{
		Base:      modkit.Build([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...),
		deps:      deps,
		startedAt: time.Now(),
	}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(rr httpkit.Router) {
		metahttp.Register(rr, metahttp.Deps{
			StartedAt: m.startedAt,
			PG:        m.deps.PG,
			CH:        m.deps.CH,
			Forms:     m.deps.Forms,
		})
	})
}

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
