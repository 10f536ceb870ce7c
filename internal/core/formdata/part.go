// Package formdata turns push-style multipart decoders into a pull sequence of parts
// and folds that sequence into field and file maps.
package formdata

// Kind tags a Part as a field or a file
type Kind uint8

const (
	// KindField is a plain form field with a text value
	KindField Kind = iota + 1
	// KindFile is an uploaded file carrying a byte stream
	KindFile
)

// String returns the lowercase kind label used in logs and JSON
func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind label
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Info is the per-part metadata reported by a decoder
type Info struct {
	Filename string `json:"filename,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// FieldInfo is the metadata a decoder reports with a field event
type FieldInfo struct {
	Encoding string
	MimeType string
	// Truncated marks a value cut at the field size ceiling
	Truncated bool
	// NameTruncated marks a name cut at the field name ceiling
	NameTruncated bool
}

// Part is one decoded unit of a multipart body, in body order
type Part struct {
	Kind   Kind
	Name   string
	Value  string
	Stream *FileStream
	Info   Info
}

// IsFile reports whether the part carries a file stream
func (p Part) IsFile() bool { return p.Kind == KindFile }
