package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of the S3 client used here.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 stores objects in a bucket.
type S3 struct {
	client  s3API
	bucket  string
	prefix  string
	baseURL string
}

// S3Options configures NewS3.
type S3Options struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

// NewS3 creates an S3 store using the default AWS credential chain.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", opts.Bucket, cfg.Region)
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
		baseURL = strings.TrimSuffix(opts.Endpoint, "/") + "/" + opts.Bucket + "/"
	}

	return newS3(s3.NewFromConfig(cfg, clientOpts...), opts.Bucket, opts.Prefix, baseURL), nil
}

func newS3(client s3API, bucket, prefix, baseURL string) *S3 {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3{client: client, bucket: bucket, prefix: prefix, baseURL: baseURL}
}

func (s *S3) Upload(ctx context.Context, r io.Reader, obj Object) (string, error) {
	key := s.prefix + obj.Key
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if obj.ContentType != "" {
		in.ContentType = aws.String(obj.ContentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.baseURL + key, nil
}

// keyFor maps a URL from Upload back to its object key. Keys outside
// prefix + "tickets/" are refused.
func (s *S3) keyFor(rawURL string) (string, bool) {
	key, ok := strings.CutPrefix(rawURL, s.baseURL)
	if !ok {
		return "", false
	}
	unescaped, err := url.PathUnescape(key)
	if err != nil {
		return "", false
	}
	rel, ok := strings.CutPrefix(unescaped, s.prefix)
	if !ok || !isTicketKey(rel) {
		return "", false
	}
	return unescaped, true
}

func (s *S3) Owns(rawURL string) bool {
	_, ok := s.keyFor(rawURL)
	return ok
}

func (s *S3) Delete(ctx context.Context, rawURL string) error {
	key, ok := s.keyFor(rawURL)
	if !ok {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
