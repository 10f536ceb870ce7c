// Package api provides the HTTP API for the application
package api

import (
	"time"

	"formdata/internal/platform/config"
	"formdata/internal/platform/logger"
	phttp "formdata/internal/platform/net/http"
	"formdata/internal/platform/net/http/formkit"
	"formdata/internal/platform/net/middleware"
	"formdata/internal/platform/store"

	"formdata/internal/modkit"
	"formdata/internal/modkit/httpkit"
	"formdata/internal/modkit/module"
	"formdata/internal/modkit/swaggerkit"

	metamod "formdata/internal/services/api/meta/module"
	uploadsmod "formdata/internal/services/uploads/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Forms          *formkit.Kit
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Log:   logger.Named("api"),
		Cfg:   opt.Config,
		Forms: opt.Forms,
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	mods := []modkit.Module{
		metamod.New(deps),
		uploadsmod.New(deps, uploadGuards(opt.Config)...),
	}

	// versioned API behind the shared middleware stack
	httpkit.MountAPI(r, "v1", httpkit.Stack(stackOptions(opt.Config)), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}

// stackOptions reads CORS_ORIGINS, REQUEST_TIMEOUT and SLOW_REQUEST under the API config
func stackOptions(c config.Conf) httpkit.StackOptions {
	return httpkit.StackOptions{
		CORSOrigins: c.MayCSV("CORS_ORIGINS", nil),
		Timeout:     c.MayDuration("REQUEST_TIMEOUT", 5*time.Minute),
		Slow:        c.MayDuration("SLOW_REQUEST", 2*time.Second),
	}
}

// uploadGuards bounds upload traffic from UPLOAD_* keys under the API config:
// UPLOAD_CONCURRENCY, UPLOAD_BACKLOG and UPLOAD_WAIT throttle, UPLOAD_MAX_BODY caps the body
func uploadGuards(c config.Conf) []modkit.Option {
	var mw []middleware.Func
	if n := c.MayInt("UPLOAD_CONCURRENCY", 0); n > 0 {
		mw = append(mw, middleware.ThrottleBacklog(n, c.MayInt("UPLOAD_BACKLOG", n), c.MayDuration("UPLOAD_WAIT", 30*time.Second)))
	}
	if limit := c.MayBytes("UPLOAD_MAX_BODY", 0); limit > 0 {
		mw = append(mw, middleware.RequestSize(limit))
	}
	if len(mw) == 0 {
		return nil
	}
	return []modkit.Option{modkit.WithMiddlewares(mw...)}
}
