package formdata

import "math"

// Unlimited marks a knob without a ceiling
const Unlimited int64 = -1

// Bound is an optional ceiling; the zero value is unset
type Bound struct {
	N   int64
	Set bool
}

// Max returns a set bound of n
func Max(n int64) Bound { return Bound{N: n, Set: true} }

// Or returns the bound when set, def otherwise
func (b Bound) Or(def int64) int64 {
	if b.Set {
		return b.N
	}
	return def
}

// Limits bounds the shape of one multipart body. Unset bounds fall back to the engine defaults
type Limits struct {
	Fields        Bound
	FieldSize     Bound
	FieldNameSize Bound
	Files         Bound
	FileSize      Bound
	Parts         Bound
	HeaderPairs   Bound
}

// Per-part engine defaults
const (
	DefaultFieldNameSize int64 = 100
	DefaultFieldSize     int64 = 1 << 20
	DefaultHeaderPairs   int64 = 2000
)

// Spooling engine defaults
const (
	DefaultSpoolFields     int64 = 1000
	DefaultSpoolFieldsSize int64 = 20 << 20
	DefaultSpoolFileSize   int64 = 200 << 20
	DefaultSpoolFileCount  int64 = 20
)

// PartLimits are the knobs of an engine that checks every part on its own
type PartLimits struct {
	FieldNameSize int64
	FieldSize     int64
	Fields        int64
	FileSize      int64
	Files         int64
	Parts         int64
	HeaderPairs   int64
}

// PartLimits maps Limits onto a per-part engine
func (l Limits) PartLimits() PartLimits {
	return PartLimits{
		FieldNameSize: l.FieldNameSize.Or(DefaultFieldNameSize),
		FieldSize:     l.FieldSize.Or(DefaultFieldSize),
		Fields:        l.Fields.Or(Unlimited),
		FileSize:      l.FileSize.Or(Unlimited),
		Files:         l.Files.Or(Unlimited),
		Parts:         l.Parts.Or(Unlimited),
		HeaderPairs:   l.HeaderPairs.Or(DefaultHeaderPairs),
	}
}

// SpoolLimits are the knobs of an engine that spools files and checks aggregates
type SpoolLimits struct {
	MaxFields        int64
	MaxFieldsSize    int64
	MaxFiles         int64
	MaxFileSize      int64
	MaxTotalFileSize int64
	HeaderPairs      int64
}

// SpoolLimits maps Limits onto a spooling engine. Parts stands in for missing field and file counts
func (l Limits) SpoolLimits() SpoolLimits {
	fileSize := l.FileSize.Or(DefaultSpoolFileSize)
	count := l.Files.Or(l.Parts.Or(DefaultSpoolFileCount))
	return SpoolLimits{
		MaxFields:        l.Fields.Or(l.Parts.Or(DefaultSpoolFields)),
		MaxFieldsSize:    l.FieldSize.Or(DefaultSpoolFieldsSize),
		MaxFiles:         l.Files.Or(l.Parts.Or(Unlimited)),
		MaxFileSize:      fileSize,
		MaxTotalFileSize: mulCap(fileSize, count),
		HeaderPairs:      l.HeaderPairs.Or(DefaultHeaderPairs),
	}
}

func mulCap(a, b int64) int64 {
	if a < 0 || b < 0 {
		return Unlimited
	}
	if a != 0 && b > math.MaxInt64/a {
		return Unlimited
	}
	return a * b
}

// Exceeds reports whether n is past ceiling max (Unlimited never is)
func Exceeds(n, max int64) bool { return max >= 0 && n > max }
