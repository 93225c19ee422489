package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/shotmakerhq/shotmaker/internal/pkg/env"
)

// ObjectStorage is the bucket abstraction the media service writes through.
// Production uses an S3-compatible endpoint (Cloudflare R2); tests use an
// in-memory implementation.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// StorageConfig holds the bucket connection settings.
type StorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

// LoadStorageConfigFromEnv reads the R2/S3 settings.
func LoadStorageConfigFromEnv() StorageConfig {
	return StorageConfig{
		Endpoint:        strings.TrimSpace(env.GetEnv("R2_ENDPOINT", "")),
		Region:          strings.TrimSpace(env.GetEnv("R2_REGION", "auto")),
		AccessKeyID:     strings.TrimSpace(env.GetEnv("R2_ACCESS_KEY_ID", "")),
		SecretAccessKey: strings.TrimSpace(env.GetEnv("R2_SECRET_ACCESS_KEY", "")),
		Bucket:          strings.TrimSpace(env.GetEnv("R2_BUCKET", "")),
		PublicURL:       strings.TrimRight(strings.TrimSpace(env.GetEnv("R2_PUBLIC_URL", "")), "/"),
	}
}

type s3Storage struct {
	client *s3.Client
	bucket string
}

// NewObjectStorage connects to the configured S3-compatible bucket. R2 and
// similar endpoints need path-style URLs.
func NewObjectStorage(cfg StorageConfig) (ObjectStorage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is not configured")
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	storage := &s3Storage{client: client, bucket: cfg.Bucket}
	if _, err := client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("bucket %s not accessible: %w", cfg.Bucket, err)
	}

	log.Infof("[Media] Connected to object storage bucket: %s", cfg.Bucket)
	return storage, nil
}

func (s *s3Storage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *s3Storage) Get(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", err
	}
	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return data, contentType, nil
}

func (s *s3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeleteByPrefix removes every object under a prefix in batches of up to
// 1000 keys, the API's per-request limit. Returns the number deleted.
func (s *s3Storage) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	var continuationToken *string

	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to list prefix %s: %w", prefix, err)
		}

		var objects []types.ObjectIdentifier
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}
		if len(objects) > 0 {
			out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{Objects: objects},
			})
			if err != nil {
				return deleted, fmt.Errorf("failed to delete under prefix %s: %w", prefix, err)
			}
			deleted += len(out.Deleted)
		}

		if page.IsTruncated == nil || !*page.IsTruncated {
			break
		}
		continuationToken = page.NextContinuationToken
	}

	return deleted, nil
}

// BuildObjectKey produces the canonical key for one stored image.
func BuildObjectKey(userID uint, projectUUID, entityType, entityID string, draftIndex, imageIndex int, ext string) string {
	return fmt.Sprintf("users/%d/projects/%s/%s/%s/draft-%d/image-%d.%s",
		userID, projectUUID, entityType, entityID, draftIndex, imageIndex, ext)
}

// ProjectPrefix is the key prefix covering every object of one project.
func ProjectPrefix(userID uint, projectUUID string) string {
	return fmt.Sprintf("users/%d/projects/%s/", userID, projectUUID)
}

// ContentTypeForExt maps a file extension to its MIME type.
func ContentTypeForExt(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
