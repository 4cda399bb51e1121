package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Option struct {
	Region string `yaml:"region"`
	// Endpoint points at an S3 compatible server such as MinIO.
	Endpoint string `yaml:"endpoint"`
}

type S3 struct {
	client *s3.Client
}

func NewS3(ctx context.Context, options S3Option) (*S3, error) {
	var opts []func(*config.LoadOptions) error
	if options.Region != "" {
		opts = append(opts, config.WithRegion(options.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if options.Endpoint != "" {
			o.BaseEndpoint = aws.String(options.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client}, nil
}

func (s *S3) ReadFile(ctx context.Context, bucket string, key string, outStream io.Writer) error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get object %s from bucket %s: %w", key, bucket, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(outStream, resp.Body); err != nil {
		return fmt.Errorf("failed to copy object %s from bucket %s: %w", key, bucket, err)
	}
	return nil
}

func (s *S3) WriteFile(ctx context.Context, bucket string, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to put object %s to bucket %s: %w", key, bucket, err)
	}
	return nil
}

// ListFiles returns the keys under prefix that end in one of exts. An
// empty exts lists everything.
func (s *S3) ListFiles(ctx context.Context, bucket, prefix string, exts ...string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil && hasExt(*obj.Key, exts) {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

func hasExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
