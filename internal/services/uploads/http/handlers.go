// Package http provides http transport for uploads
package http

import (
	stdhttp "net/http"

	"formdata/internal/core/formdata"
	"formdata/internal/modkit/httpkit"
	perr "formdata/internal/platform/errors"
	"formdata/internal/platform/net/http/bind"
	"formdata/internal/platform/net/http/formkit"
	"formdata/internal/services/uploads/domain"
	svc "formdata/internal/services/uploads/service"

	"github.com/go-chi/chi/v5"
)

// Register mounts upload endpoints on the given router. storage names the sink
// recorded in manifests
func Register(r httpkit.Router, s svc.Service, storage string) {
	h := &handlers{svc: s, storage: storage}

	// eager parse, files go through the configured storage
	httpkit.Post(r, "/", h.create)

	// lazy pull, nothing is stored
	httpkit.Post(r, "/stream", h.stream)

	httpkit.Get(r, "/{id}", h.get)
}

type handlers struct {
	svc     svc.Service
	storage string
}

// swagger:route POST /uploads Uploads uploadsCreate
// @Summary Upload files with a title and tags
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param tags formData []string false "Tags"
// @Param file formData file true "Any number of file parts"
// @Success 201 {object} domain.Upload "created"
// @Failure 413 {object} httpkit.Envelope "limit reached"
// @Router /uploads [post]
func (h *handlers) create(r *stdhttp.Request) (any, error) {
	q := formkit.From(r)
	if !q.IsMultipart() {
		return nil, errNotMultipart
	}
	res, ok := q.Result()
	if !ok {
		var err error
		if res, err = q.Parse(r.Context()); err != nil {
			return nil, err
		}
	}
	form, err := bind.Form[domain.UploadForm](formdata.Strings(&res.Fields))
	if err != nil {
		return nil, err
	}
	u, err := h.svc.Create(r.Context(), domain.CreateInput{Form: form, Storage: h.storage, Files: res.Files})
	if err != nil {
		return nil, err
	}
	return httpkit.Created(u), nil
}

// swagger:route POST /uploads/stream Uploads uploadsStream
// @Summary Stream a form and summarize its parts
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} domain.StreamSummary "ok"
// @Failure 413 {object} httpkit.Envelope "limit reached"
// @Router /uploads/stream [post]
func (h *handlers) stream(r *stdhttp.Request) (any, error) {
	q := formkit.From(r)
	if !q.IsMultipart() {
		return nil, errNotMultipart
	}
	return h.svc.Summarize(r.Context(), q.Iterate(r.Context()))
}

// swagger:route GET /uploads/{id} Uploads uploadsGet
// @Summary Load an upload manifest
// @Tags Uploads
// @Produce json
// @Param id path string true "Upload id"
// @Success 200 {object} domain.Upload "ok"
// @Router /uploads/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.svc.Get(r.Context(), chi.URLParam(r, "id"))
}

var errNotMultipart = perr.WithField(perr.InvalidArgf("expected a multipart/form-data body"), "Content-Type")
