package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/meshgo/blobstore"
)

// Store implements blobstore.BlobStore for Amazon S3. Column blobs are
// read with ranged GetObject requests and written with multipart uploads.
type Store struct {
	client    Client
	uploader  *manager.Uploader
	bucket    string
	prefix    string
	uploadCfg UploadConfig
}

// Options configures a Store created with New.
type Options struct {
	// Region overrides the region resolved from the environment.
	Region string
	// Prefix is prepended to all keys (e.g. "snapshots/").
	Prefix string
	// Upload configures multipart uploads.
	Upload UploadConfig
}

// Option mutates Options.
type Option func(*Options)

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(o *Options) { o.Region = region }
}

// WithPrefix sets a key prefix for all blobs.
func WithPrefix(prefix string) Option {
	return func(o *Options) { o.Prefix = prefix }
}

// WithUploadConfig overrides the default upload tuning.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(o *Options) { o.Upload = cfg }
}

// New creates a Store using credentials and region from the default AWS
// config chain (environment, shared config, instance metadata).
func New(ctx context.Context, bucket string, optFns ...Option) (*Store, error) {
	opts := Options{Upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&opts)
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newStore(s3.NewFromConfig(cfg), bucket, opts.Prefix, opts.Upload), nil
}

// NewStore creates a Store around an existing client.
// rootPrefix is prepended to all keys (e.g. "snapshots/").
func NewStore(client Client, bucket, rootPrefix string) *Store {
	return newStore(client, bucket, rootPrefix, DefaultUploadConfig())
}

func newStore(client Client, bucket, prefix string, uploadCfg UploadConfig) *Store {
	return &Store{
		client:    client,
		uploader:  newUploader(client, uploadCfg),
		bucket:    bucket,
		prefix:    prefix,
		uploadCfg: uploadCfg,
	}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open opens a blob for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	return openBlob(ctx, s.client, s.bucket, s.key(name))
}

// Create opens a blob for streaming writes backed by a multipart upload.
// The object becomes visible when Close returns.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return newStreamingWritableBlob(
		ctx,
		s.uploader,
		s.bucket,
		s.key(name),
		s.uploadCfg.EnableChecksum,
	), nil
}

// Put writes a complete blob. S3 object writes are atomic, and with
// checksums enabled the payload is validated server side.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if s.uploadCfg.EnableChecksum {
		return putWithChecksum(ctx, s.client, s.bucket, s.key(name), data)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Delete removes a blob. S3 deletes are idempotent.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	return err
}

// List returns the sorted names of all blobs under the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	return listObjects(ctx, s.client, s.bucket, s.key(prefix), s.prefix)
}
