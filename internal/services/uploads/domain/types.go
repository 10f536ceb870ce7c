// Package domain holds upload manifests, stream summaries and the service contract
package domain

import (
	"time"

	"formdata/internal/core/formdata"
)

// UploadForm is the text part of an upload body
type UploadForm struct {
	Title string   `form:"title" validate:"required,max=200" example:"quarterly report"`
	Tags  []string `form:"tags" validate:"omitempty,max=10,dive,slug" example:"finance"`
}

// CreateInput is a parsed upload ready to be recorded
type CreateInput struct {
	Form    UploadForm
	Storage string
	Files   formdata.Files
}

// FileEntry is one stored file in a manifest
type FileEntry struct {
	Field    string `json:"field" example:"doc"`
	Name     string `json:"name" example:"report.pdf"`
	Location string `json:"location,omitempty" example:"s3://uploads/2c1f.pdf"`
	Size     int64  `json:"size" example:"52311"`
	MimeType string `json:"mime_type,omitempty" example:"application/pdf"`
	Digest   string `json:"digest,omitempty" example:"9c5d3f1a0be7e2c4"`
}

// Upload is the manifest of one eager upload
type Upload struct {
	ID        string      `json:"id" example:"5b0c6a52-3c8f-4c11-9a59-8f3e1d0f6c1e"`
	Title     string      `json:"title"`
	Tags      []string    `json:"tags"`
	Storage   string      `json:"storage" example:"file"`
	Files     []FileEntry `json:"files"`
	CreatedAt time.Time   `json:"created_at"`
}

// PartSummary describes one part seen while streaming
type PartSummary struct {
	Kind      formdata.Kind `json:"kind" swaggertype:"string" example:"file"`
	Name      string        `json:"name" example:"doc"`
	Filename  string        `json:"filename,omitempty" example:"report.pdf"`
	MimeType  string        `json:"mime_type,omitempty"`
	Size      int64         `json:"size"`
	Digest    string        `json:"digest,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
}

// StreamSummary is what a streamed upload reports instead of storing files
type StreamSummary struct {
	ID     string        `json:"id"`
	Fields int           `json:"fields"`
	Files  int           `json:"files"`
	Bytes  int64         `json:"bytes"`
	Parts  []PartSummary `json:"parts"`
}
