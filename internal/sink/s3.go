package sink

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/didzislauva/osmplot/internal/render"
)

// S3Config carries the connection settings for an S3-compatible store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Uploader pushes rendered maps to S3-compatible object storage.
type Uploader struct {
	client *minio.Client
	bucket string
}

// NewUploader connects to the endpoint and makes sure the bucket
// exists, creating it when it does not.
func NewUploader(ctx context.Context, cfg S3Config) (*Uploader, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, eris.New("sink: s3 endpoint, access key, secret key and bucket are all required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "sink: s3 client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, eris.Wrapf(err, "sink: check bucket %s", cfg.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, eris.Wrapf(err, "sink: create bucket %s", cfg.Bucket)
		}
		zap.L().Info("sink: bucket created", zap.String("bucket", cfg.Bucket))
	}

	return &Uploader{client: client, bucket: cfg.Bucket}, nil
}

// Upload stores one encoded map under the given object key.
func (u *Uploader) Upload(ctx context.Context, key string, data []byte) error {
	_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentTypeFor(key)})
	if err != nil {
		return eris.Wrapf(err, "sink: upload %s", key)
	}
	zap.L().Info("sink: map uploaded",
		zap.String("bucket", u.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)))
	return nil
}

// UploadMap encodes m for each key's extension and uploads the results
// concurrently.
func (u *Uploader) UploadMap(ctx context.Context, m *render.Map, keys []string, opts render.EncodeOptions) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, key := range keys {
		key := key // per-iteration copy: go directive < 1.22
		g.Go(func() error {
			data, err := Encode(m, key, opts)
			if err != nil {
				return err
			}
			return u.Upload(gctx, key, data)
		})
	}
	return g.Wait()
}

func contentTypeFor(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
