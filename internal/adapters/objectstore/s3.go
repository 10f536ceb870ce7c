package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"formdata/internal/core/formdata"
	"formdata/internal/core/sinks"
	perr "formdata/internal/platform/errors"
	"formdata/internal/platform/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

const (
	// s3 rejects non final parts under 5 MiB
	minPartSize     = 5 << 20
	defaultPartSize = 8 << 20
)

// S3Config holds configuration for the S3 storage
type S3Config struct {
	// Bucket is the S3 bucket name (required)
	Bucket string
	// Prefix is the key prefix within the bucket
	Prefix string
	// Region is the AWS region; empty uses the default chain
	Region string
	// Endpoint is a custom endpoint for S3 compatible providers (MinIO, R2)
	Endpoint string
	// UsePathStyle forces path style addressing, required by most S3 compatible providers
	UsePathStyle bool
	// PartSize is the multipart chunk; files that fit in one chunk use a single PutObject
	PartSize int64
}

// Validate checks that required S3 configuration is present
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return perr.InvalidOptionf("s3 bucket is required")
	}
	if c.PartSize != 0 && c.PartSize < minPartSize {
		return perr.InvalidOptionf("s3 part size %d below %d", c.PartSize, minPartSize)
	}
	return nil
}

// S3API is the subset of the s3 client the storage calls
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// NewS3Client builds an s3 client from the default credential chain (env, shared config, IAM role)
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsConfig, s3Opts...), nil
}

// S3 stores each upload as one object under Prefix
type S3 struct {
	formdata.NopHooks

	api S3API
	cfg S3Config
	log logger.Logger
}

// NewS3 builds the storage over api
func NewS3(api S3API, cfg S3Config) *S3 {
	if cfg.PartSize == 0 {
		cfg.PartSize = defaultPartSize
	}
	return &S3{api: api, cfg: cfg, log: *logger.Named("s3")}
}

// Name implements formdata.Storage
func (s *S3) Name() string { return "s3" }

// NewSink implements formdata.Storage
func (s *S3) NewSink() formdata.Sink { return s3Sink{st: s} }

type s3Sink struct {
	formdata.NopHooks
	st *S3
}

func (k s3Sink) Save(ctx context.Context, _ string, r io.Reader, info formdata.Info) (formdata.StoredFile, error) {
	m := sinks.NewMeter(r)
	key := path.Join(k.st.cfg.Prefix, uuid.NewString()+filepath.Ext(info.Filename))

	buf := make([]byte, k.st.cfg.PartSize)
	n, err := io.ReadFull(m, buf)
	switch {
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		err = k.put(ctx, key, buf[:n], info)
	case err == nil:
		err = k.multipart(ctx, key, buf, m, info)
	}
	if err != nil || m.Err() != nil {
		return formdata.StoredFile{}, m.Fail(err, "s3 upload %s", key)
	}
	return m.Stored(path.Base(key), "s3://"+k.st.cfg.Bucket+"/"+key, info), nil
}

func (k s3Sink) put(ctx context.Context, key string, body []byte, info formdata.Info) error {
	_, err := k.st.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(k.st.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(info.MimeType),
	})
	return err
}

// multipart uploads first, then every following chunk of r. A failed upload is aborted
func (k s3Sink) multipart(ctx context.Context, key string, first []byte, r io.Reader, info formdata.Info) (err error) {
	bucket := aws.String(k.st.cfg.Bucket)
	created, err := k.st.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      bucket,
		Key:         aws.String(key),
		ContentType: aws.String(info.MimeType),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		_, aerr := k.st.api.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
			Bucket:   bucket,
			Key:      aws.String(key),
			UploadId: created.UploadId,
		})
		if aerr != nil {
			k.st.log.Warn().Err(aerr).Str("key", key).Msg("abort multipart upload failed")
		}
	}()

	var parts []types.CompletedPart
	chunk := first
	for num := int32(1); ; num++ {
		out, err := k.st.api.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:        bucket,
			Key:           aws.String(key),
			UploadId:      created.UploadId,
			PartNumber:    aws.Int32(num),
			Body:          bytes.NewReader(chunk),
			ContentLength: aws.Int64(int64(len(chunk))),
		})
		if err != nil {
			return err
		}
		parts = append(parts, types.CompletedPart{ETag: out.ETag, PartNumber: aws.Int32(num)})

		n, rerr := io.ReadFull(r, first)
		if rerr == io.EOF {
			break
		}
		if rerr != nil && !errors.Is(rerr, io.ErrUnexpectedEOF) {
			return rerr
		}
		chunk = first[:n]
	}

	_, err = k.st.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          bucket,
		Key:             aws.String(key),
		UploadId:        created.UploadId,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	return err
}

var _ formdata.Storage = (*S3)(nil)
