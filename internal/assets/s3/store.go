// Package s3 implements the asset store on Amazon S3 (or any
// S3-compatible endpoint). The object ETag doubles as the integrity tag
// used for upload deduplication.
package s3

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/wmdrthr/bragge/internal/assets"
	"github.com/wmdrthr/bragge/internal/hash/md5"
)

// Config captures the parameters required to reach the bucket.
type Config struct {
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// Store reads and writes archive assets in an S3 bucket.
type Store struct {
	client s3iface.S3API
	bucket string
}

// New creates an S3-backed asset store. Credentials come from the
// standard AWS chain (environment, shared config, instance role).
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return &Store{client: s3.New(sess), bucket: cfg.Bucket}, nil
}

// NewWithClient constructs a store from an existing client (primarily
// for testing).
func NewWithClient(client s3iface.S3API, bucket string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Digest returns the object's ETag, which S3 sets to the quoted hex MD5
// of the body for non-multipart uploads. ErrNotFound maps a missing
// object; every other error propagates.
func (s *Store) Digest(ctx context.Context, key string) (string, error) {
	out, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", assets.ErrNotFound
		}
		return "", fmt.Errorf("head s3://%s/%s: %w", s.bucket, key, err)
	}
	return aws.StringValue(out.ETag), nil
}

// Put uploads the file at srcPath, sending Content-MD5 so S3 rejects a
// corrupted transfer.
func (s *Store) Put(ctx context.Context, key string, contentType string, srcPath string) error {
	f, err := os.Open(srcPath) // #nosec G304 -- path comes from our own downloads store
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer f.Close()

	digest, err := md5.SumFile(srcPath)
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(digest)
	if err != nil {
		return fmt.Errorf("decode digest: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(key),
		Body:       f,
		ContentMD5: aws.String(base64.StdEncoding.EncodeToString(raw)),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var awsErr awserr.RequestFailure
	if ok := asRequestFailure(err, &awsErr); ok && awsErr.StatusCode() == http.StatusNotFound {
		return true
	}
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == s3.ErrCodeNoSuchKey || strings.EqualFold(aerr.Code(), "NotFound")
	}
	return false
}

func asRequestFailure(err error, target *awserr.RequestFailure) bool {
	rf, ok := err.(awserr.RequestFailure)
	if ok {
		*target = rf
	}
	return ok
}
