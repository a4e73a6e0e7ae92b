// Package archive keeps raw webhook batches in S3 so they can be replayed.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver stores a raw webhook body.
type Archiver interface {
	Store(ctx context.Context, requestID string, body []byte, at time.Time) error
}

// PutObjectAPI is the subset of the S3 client used here.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures the S3 archiver. Empty keys use the default AWS
// credential chain.
type Options struct {
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3 archives to a bucket under <prefix>/YYYY/MM/DD/<request-id>.json.
type S3 struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// New returns Noop when no bucket is configured.
func New(ctx context.Context, opts Options) (Archiver, error) {
	if opts.Bucket == "" {
		return Noop{}, nil
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}
	return NewS3(s3.NewFromConfig(cfg), opts.Bucket, opts.Prefix), nil
}

// NewS3 wraps an existing client.
func NewS3(client PutObjectAPI, bucket, prefix string) *S3 {
	if prefix == "" {
		prefix = "webhooks"
	}
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key of a batch.
func (a *S3) Key(requestID string, at time.Time) string {
	at = at.UTC()
	return path.Join(a.prefix, at.Format("2006/01/02"), requestID+".json")
}

func (a *S3) Store(ctx context.Context, requestID string, body []byte, at time.Time) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(requestID, at)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: put object: %w", err)
	}
	return nil
}

// Noop discards batches.
type Noop struct{}

func (Noop) Store(context.Context, string, []byte, time.Time) error { return nil }
