// Package formkit wires multipart form decoding into the http stack. It detects form
// bodies, parses them eagerly or hands out a lazy part iterator, and cleans up after
// the response
package formkit

import (
	"context"
	"math"
	"strings"

	"formdata/internal/adapters/objectstore"
	"formdata/internal/core/decoders"
	"formdata/internal/core/formdata"
	"formdata/internal/core/sinks"
	"formdata/internal/platform/config"
	perr "formdata/internal/platform/errors"
	"formdata/internal/platform/net/http/bind"
	"formdata/internal/platform/store"

	"github.com/go-playground/validator/v10"
)

// Options configures multipart handling
type Options struct {
	// Engine builds one decoder per request
	Engine formdata.Engine
	// Storage builds one sink per request
	Storage formdata.Storage

	Limits formdata.Limits

	// RemoveFilesFromBody keeps stored files out of the parsed fields
	RemoveFilesFromBody bool

	// AutoParse parses in the AutoParse middleware, after whatever runs between it and Detect
	AutoParse bool
	// ParseOnDetect parses inside Detect as soon as a form body is seen
	ParseOnDetect bool `validate:"excluded_if=AutoParse true"`
}

// Validate reports a missing engine or storage as InvalidOption and
// AutoParse together with ParseOnDetect as ConflictConfig
func (o Options) Validate() error {
	switch {
	case o.Engine == nil:
		return perr.WithField(perr.InvalidOptionf("option Engine must be provided"), "Engine")
	case o.Storage == nil:
		return perr.WithField(perr.InvalidOptionf("option Storage must be provided"), "Storage")
	}
	err := bind.Struct(o)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return perr.Wrap(err, perr.ErrorCodeInvalidOption, "invalid multipart options")
	}
	if fe := verrs[0]; fe.Tag() == "excluded_if" {
		return perr.New(perr.ErrorCodeConflictConfig, "AutoParse and ParseOnDetect cannot be used together")
	}
	field, msg := bind.Explain(err)
	return perr.WithField(perr.InvalidOptionf("%s", msg), field)
}

// unset marks a limit key that is absent from the environment
const unset = math.MinInt64

// FromConfig reads options from FORMDATA_* style keys under conf.
// st supplies postgres large objects for the pg sink and may be nil otherwise
func FromConfig(ctx context.Context, conf config.Conf, st *store.Store) (Options, error) {
	o := Options{
		Limits: formdata.Limits{
			Fields:        bound(conf, "LIMIT_FIELDS"),
			FieldSize:     bound(conf, "LIMIT_FIELD_SIZE"),
			FieldNameSize: bound(conf, "LIMIT_FIELD_NAME_SIZE"),
			Files:         bound(conf, "LIMIT_FILES"),
			FileSize:      bound(conf, "LIMIT_FILE_SIZE"),
			Parts:         bound(conf, "LIMIT_PARTS"),
			HeaderPairs:   bound(conf, "LIMIT_HEADER_PAIRS"),
		},
		RemoveFilesFromBody: conf.MayBool("REMOVE_FILES_FROM_BODY", false),
		AutoParse:           conf.MayBool("AUTO_PARSE", false),
		ParseOnDetect:       conf.MayBool("PARSE_ON_DETECT", false),
	}

	switch strings.ToLower(conf.MayEnum("ENGINE", "stream", "stream", "spool")) {
	case "spool":
		o.Engine = decoders.NewSpool(conf.MayString("SPOOL_DIR", ""))
	default:
		o.Engine = decoders.NewStream()
	}

	storage, err := storageFromConfig(ctx, conf, st)
	if err != nil {
		return Options{}, err
	}
	o.Storage = storage
	return o, o.Validate()
}

func bound(conf config.Conf, key string) formdata.Bound {
	if v := conf.MayBytes(key, unset); v != unset {
		return formdata.Max(v)
	}
	return formdata.Bound{}
}

func storageFromConfig(ctx context.Context, conf config.Conf, st *store.Store) (formdata.Storage, error) {
	switch strings.ToLower(conf.MayEnum("SINK", "discard", "discard", "buffer", "file", "s3", "azblob", "pg")) {
	case "buffer":
		return sinks.Buffer{}, nil
	case "file":
		return sinks.NewFile(sinks.FileOptions{
			Dir:             conf.MayString("FILE_DIR", ""),
			Compress:        conf.MayBool("FILE_COMPRESS", false),
			RemoveOnCleanup: conf.MayBool("FILE_REMOVE_ON_CLEANUP", false),
		}), nil
	case "s3":
		cfg := objectstore.S3Config{
			Bucket:       conf.MayString("S3_BUCKET", ""),
			Prefix:       conf.MayString("S3_PREFIX", ""),
			Region:       conf.MayString("S3_REGION", ""),
			Endpoint:     conf.MayString("S3_ENDPOINT", ""),
			UsePathStyle: conf.MayBool("S3_PATH_STYLE", false),
			PartSize:     conf.MayBytes("S3_PART_SIZE", 0),
		}
		client, err := objectstore.NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return objectstore.NewS3(client, cfg), nil
	case "azblob":
		client, err := objectstore.NewAzureClient(conf.MayString("AZBLOB_CONNECTION", ""))
		if err != nil {
			return nil, err
		}
		return objectstore.NewAzure(client, objectstore.AzureConfig{
			Container: conf.MayString("AZBLOB_CONTAINER", ""),
			Prefix:    conf.MayString("AZBLOB_PREFIX", ""),
		})
	case "pg":
		lo, ok := st.LargeObjects()
		if !ok {
			return nil, perr.InvalidOptionf("pg sink requires postgres")
		}
		return objectstore.NewLargeObject(lo), nil
	default:
		return sinks.Discard{}, nil
	}
}
