// Package storage holds the proof-of-delivery evidence store backed by S3.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/99minutos/shipment-legs/internal/core/ports"
)

const defaultContentType = "application/octet-stream"

// ObjectPutter is the subset of the S3 client the store needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint (MinIO, LocalStack). Path-style
	// addressing is used when set.
	Endpoint string
	Prefix   string
}

// S3ProofStore implements ports.ProofStore. Objects are write-once; the
// returned reference is s3://<bucket>/<key>.
type S3ProofStore struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3ProofStore builds a store from the default AWS credential chain.
func NewS3ProofStore(ctx context.Context, cfg S3Config) (*S3ProofStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3ProofStoreWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3ProofStoreWithClient allows injecting a test client.
func NewS3ProofStoreWithClient(client ObjectPutter, bucket, prefix string) *S3ProofStore {
	return &S3ProofStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3ProofStore) Put(ctx context.Context, obj ports.ProofObject) (string, error) {
	key := s.objectKey(obj.LegID, obj.Filename)

	contentType := obj.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        obj.Body,
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"leg-id": obj.LegID},
	}
	if obj.Size > 0 {
		in.ContentLength = aws.Int64(obj.Size)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// objectKey never reuses the client's filename beyond its extension.
func (s *S3ProofStore) objectKey(legID, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if len(ext) > 8 {
		ext = ""
	}
	name := uuid.NewString() + ext
	if s.prefix == "" {
		return path.Join(legID, name)
	}
	return path.Join(s.prefix, legID, name)
}
