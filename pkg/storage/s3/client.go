package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/jerseyleague/shop-backend/pkg/config"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/storage"
)

const (
	providerName       = "s3"
	defaultCORSMaxAge  = 3000
	defaultCacheHeader = "public, max-age=31536000, immutable"
)

type api interface {
	PutObject(context.Context, *awss3.PutObjectInput, ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	DeleteObject(context.Context, *awss3.DeleteObjectInput, ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	HeadBucket(context.Context, *awss3.HeadBucketInput, ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	PutBucketCors(context.Context, *awss3.PutBucketCorsInput, ...func(*awss3.Options)) (*awss3.PutBucketCorsOutput, error)
}

// Client relays objects into an S3 (or S3-compatible) bucket.
type Client struct {
	api    api
	bucket string
}

var _ storage.ObjectStore = (*Client)(nil)

// NewClient loads AWS credentials from the default chain (env, shared config, role).
func NewClient(ctx context.Context, cfg config.StorageConfig, awsCfg config.AWSConfig, logg *logger.Logger) (*Client, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket name is required")
	}

	loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(loaded, func(o *awss3.Options) {
		if endpoint := strings.TrimSpace(awsCfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = awsCfg.UsePathStyle
	})

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"bucket": bucket, "region": cfg.Region}), "s3 client ready")
	}
	return &Client{api: client, bucket: bucket}, nil
}

func (c *Client) Provider() string { return providerName }

func (c *Client) Put(ctx context.Context, obj storage.Object) error {
	if c == nil || c.api == nil {
		return errors.New("s3 client not initialized")
	}
	key := strings.TrimSpace(obj.Key)
	if key == "" {
		return errors.New("object key is required")
	}
	if obj.Body == nil {
		return errors.New("object body is required")
	}

	cacheControl := obj.CacheControl
	if cacheControl == "" {
		cacheControl = defaultCacheHeader
	}
	input := &awss3.PutObjectInput{
		Bucket:       aws.String(c.bucket),
		Key:          aws.String(key),
		Body:         obj.Body,
		ContentType:  aws.String(obj.ContentType),
		CacheControl: aws.String(cacheControl),
	}
	if obj.Size > 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}
	if _, err := c.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil || c.api == nil {
		return errors.New("s3 client not initialized")
	}
	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return storage.ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("s3 client not initialized")
	}
	if _, err := c.api.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("s3 head bucket: %w", err)
	}
	return nil
}

// ConfigureCORS replaces the bucket CORS configuration so browsers on the given
// origins can read and upload objects.
func (c *Client) ConfigureCORS(ctx context.Context, origins []string) error {
	if c == nil || c.api == nil {
		return errors.New("s3 client not initialized")
	}
	clean := make([]string, 0, len(origins))
	for _, origin := range origins {
		if o := strings.TrimRight(strings.TrimSpace(origin), "/"); o != "" {
			clean = append(clean, o)
		}
	}
	if len(clean) == 0 {
		return errors.New("at least one origin is required")
	}

	_, err := c.api.PutBucketCors(ctx, &awss3.PutBucketCorsInput{
		Bucket: aws.String(c.bucket),
		CORSConfiguration: &types.CORSConfiguration{
			CORSRules: []types.CORSRule{{
				AllowedOrigins: clean,
				AllowedMethods: []string{"GET", "HEAD", "PUT", "POST"},
				AllowedHeaders: []string{"*"},
				ExposeHeaders:  []string{"ETag"},
				MaxAgeSeconds:  aws.Int32(defaultCORSMaxAge),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put bucket cors: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey"
	}
	return false
}
