package formdata

import (
	perr "formdata/internal/platform/errors"
)

// UnknownName is reported when the engine cannot tell which part broke a limit
const UnknownName = "unknown"

// SignalCode identifies a limit violation reported by a decoder
type SignalCode uint8

const (
	// SignalFieldsLimit is raised when the field count ceiling is passed
	SignalFieldsLimit SignalCode = iota + 1
	// SignalFilesLimit is raised when the file count ceiling is passed
	SignalFilesLimit
	// SignalPartsLimit is raised when the part count ceiling is passed
	SignalPartsLimit
	// SignalFieldSize is raised for a single field value over its ceiling
	SignalFieldSize
	// SignalFileSize is raised for a single file over its ceiling
	SignalFileSize
	// SignalTotalFieldSize is raised when all field values together pass their ceiling
	SignalTotalFieldSize
	// SignalTotalFileSize is raised when all files together pass their ceiling
	SignalTotalFileSize
)

// Signal is a decoder limit event; Name is empty when the engine does not know the part
type Signal struct {
	Code SignalCode
	Name string
}

// LimitError normalizes a decoder signal into the limit error taxonomy.
// Per-part and aggregate size signals land on the same code
func LimitError(sig Signal) error {
	name := sig.Name
	if name == "" {
		name = UnknownName
	}
	switch sig.Code {
	case SignalFieldsLimit:
		return perr.New(perr.ErrorCodeFieldsLimit, "fields limit reached")
	case SignalFilesLimit:
		return perr.New(perr.ErrorCodeFilesLimit, "files limit reached")
	case SignalPartsLimit:
		return perr.New(perr.ErrorCodePartsLimit, "parts limit reached")
	case SignalFieldSize, SignalTotalFieldSize:
		return perr.WithField(perr.Newf(perr.ErrorCodeFieldSizeLimit, "field %q over size limit", name), name)
	case SignalFileSize, SignalTotalFileSize:
		return perr.WithField(perr.Newf(perr.ErrorCodeFileSizeLimit, "file %q over size limit", name), name)
	default:
		return perr.Newf(perr.ErrorCodeMultipart, "unexpected limit signal %d", sig.Code)
	}
}

// Unexpected wraps a decoder fault outside the limit taxonomy, keeping the cause.
// Errors that already carry a project code pass through
func Unexpected(err error) error {
	if err == nil {
		return nil
	}
	if perr.CodeOf(err) != perr.ErrorCodeUnknown {
		return err
	}
	return perr.Wrap(err, perr.ErrorCodeMultipart, "unexpected multipart failure")
}
