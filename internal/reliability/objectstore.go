// Package reliability covers backups and scheduled database maintenance.
package reliability

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/pkg/logger"
)

// ObjectStoreConfig holds credentials for an S3-compatible bucket
// (AWS S3, Cloudflare R2, MinIO).
type ObjectStoreConfig struct {
	Bucket    string
	Endpoint  string // empty for stock AWS
	Region    string
	AccessKey string
	SecretKey string
}

// RemoteObject describes one stored backup object.
type RemoteObject struct {
	Key          string
	SizeBytes    int64
	LastModified time.Time
}

// ObjectStore is a thin client for the backup bucket.
type ObjectStore struct {
	client *s3.Client
	bucket string
	log    zerolog.Logger
}

// NewObjectStore builds an S3 client for the configured bucket.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig, log zerolog.Logger) (*ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ObjectStore{
		client: client,
		bucket: cfg.Bucket,
		log:    logger.Component(log, "object_store"),
	}, nil
}

// Upload streams an object into the bucket.
func (o *ObjectStore) Upload(ctx context.Context, key string, body io.Reader) error {
	uploader := manager.NewUploader(o.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// List returns the objects under the given key prefix.
func (o *ObjectStore) List(ctx context.Context, prefix string) ([]RemoteObject, error) {
	out, err := o.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(o.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	objects := make([]RemoteObject, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		ro := RemoteObject{Key: *obj.Key}
		if obj.Size != nil {
			ro.SizeBytes = *obj.Size
		}
		if obj.LastModified != nil {
			ro.LastModified = *obj.LastModified
		}
		objects = append(objects, ro)
	}
	return objects, nil
}

// Delete removes an object from the bucket.
func (o *ObjectStore) Delete(ctx context.Context, key string) error {
	_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
