// Package swaggerkit serves the OpenAPI document and the Swagger UI under /api/docs
package swaggerkit

import (
	_ "embed"
	"net/http"

	phttp "formdata/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openapi []byte

const base = "/api/docs"

// Mount registers the UI and doc.json on r; a no-op unless enabled
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	r.Get(base, func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, base+"/", http.StatusPermanentRedirect)
	})
	r.Get(base+"/doc.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(openapi)
	})
	r.Handle(base+"/*", httpSwagger.Handler(httpSwagger.URL(base+"/doc.json")))
}
