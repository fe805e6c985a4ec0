package filestore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"wsrestore/internal/config"
	"wsrestore/internal/restore"
)

// listObjectsAPI is the part of the S3 client the store needs.
type listObjectsAPI interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store counts the objects under a bucket prefix, the layout used when
// attachments are uploaded to S3 or an S3-compatible server.
type S3Store struct {
	client listObjectsAPI
	bucket string
	prefix string
}

var _ restore.FileStore = (*S3Store)(nil)

// NewS3Store builds a client from cfg. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg config.FilesConfig) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 files require s3_bucket to be set")
	}

	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3PathStyle {
			o.UsePathStyle = true
		}
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})
	return NewS3StoreFromClient(client, cfg.S3Bucket, cfg.S3Prefix), nil
}

// NewS3StoreFromClient wraps an existing client.
func NewS3StoreFromClient(client listObjectsAPI, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Stats pages through every object under the prefix.
func (s *S3Store) Stats(ctx context.Context) (restore.FileStats, error) {
	var st restore.FileStats
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return restore.FileStats{}, fmt.Errorf("listing s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range out.Contents {
			st.Count++
			st.Bytes += aws.ToInt64(obj.Size)
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return st, nil
		}
		token = out.NextContinuationToken
	}
}
