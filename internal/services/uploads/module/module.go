// Package module wires uploads into the API using modkit
package module

import (
	modkit "formdata/internal/modkit"
	"formdata/internal/modkit/httpkit"
	uploadshttp "formdata/internal/services/uploads/http"
	uploadsrepo "formdata/internal/services/uploads/repo"
	uploadssvc "formdata/internal/services/uploads/service"
)

// Module implements the uploads module
type Module struct {
	modkit.Base

	svc     *uploadssvc.Svc
	storage string
}

// New constructs the uploads module. deps.Forms must be set; middlewares passed
// through opts run ahead of its Detect and AutoParse so they can wrap the body
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	if deps.Forms == nil {
		panic("uploads module requires deps.Forms")
	}
	opts = append(opts, modkit.WithMiddlewares(deps.Forms.Detect(), deps.Forms.AutoParse()))
	base := modkit.Build([]modkit.Option{
		modkit.WithName("uploads"),
		modkit.WithPrefix("/uploads"),
	}, opts...)

	storage := deps.Forms.Options().Storage.Name()
	deps.Logger("uploads").Debug().Str("storage", storage).Bool("manifests", deps.PG != nil).Msg("uploads module ready")

	return &Module{
		Base:    base,
		svc:     uploadssvc.New(deps.PG, uploadsrepo.NewPG(), uploadsrepo.NewCH(deps.CH)),
		storage: storage,
	}
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(rr httpkit.Router) {
		uploadshttp.Register(rr, m.svc, m.storage)
	})
}

// Ports exposes the upload service to other modules
func (m *Module) Ports() any { return Ports{Service: m.svc} }
