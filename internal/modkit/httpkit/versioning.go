package httpkit

import (
	"strings"

	"formdata/internal/platform/net/middleware"
)

// MountAPI scopes mount under /api/{version} behind mw
func MountAPI(r Router, version string, mw []middleware.Func, mount func(Router)) {
	r.Route("/api/"+strings.Trim(version, "/"), func(api Router) {
		api.Use(mw...)
		mount(api)
	})
}
