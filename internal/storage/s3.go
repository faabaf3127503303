package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/varhold/varhold/internal/apperr"
)

// S3Options configures an S3-compatible blob backend.
// Supports AWS S3, MinIO, Wasabi, and other S3-compatible services.
type S3Options struct {
	Endpoint        string
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// S3Backend stores blobs in an S3-compatible bucket, one object per
// variable under <prefix>/<userID>/<key>.json.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Backend creates an S3 blob backend and verifies bucket access.
func NewS3Backend(ctx context.Context, opts S3Options) (*S3Backend, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 backend: bucket is required")
	}
	if opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return nil, fmt.Errorf("s3 backend: credentials are required")
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("s3 backend: load config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		endpoint := opts.Endpoint
		if u, err := url.Parse(opts.Endpoint); err == nil && u.Host != "" {
			endpoint = u.Host
		}
		endpointURL := fmt.Sprintf("%s://%s", scheme, endpoint)
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpointURL)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, clientOpts...)

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(opts.Bucket)}); err != nil {
		return nil, fmt.Errorf("s3 backend: access bucket: %w", err)
	}

	return &S3Backend{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}, nil
}

func (b *S3Backend) objectKey(storagePath string) string {
	if b.prefix == "" {
		return storagePath
	}
	return b.prefix + "/" + storagePath
}

// isNotFound reports whether err is an S3 missing-object error.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// Store implements Backend. S3 has no directories, so the user namespace
// exists implicitly.
func (b *S3Backend) Store(ctx context.Context, userID uuid.UUID, key string, doc json.RawMessage) (string, error) {
	data, err := canonicalJSON(doc)
	if err != nil {
		return "", err
	}

	storagePath := fmt.Sprintf("%s/%s.json", userID, key)
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.objectKey(storagePath)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	return storagePath, nil
}

// Retrieve implements Backend.
func (b *S3Backend) Retrieve(ctx context.Context, storagePath string) (json.RawMessage, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(storagePath)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errBlobNotFound()
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	return json.RawMessage(data), nil
}

// Update implements Backend. The object must already exist.
func (b *S3Backend) Update(ctx context.Context, storagePath string, doc json.RawMessage) error {
	data, err := canonicalJSON(doc)
	if err != nil {
		return err
	}

	exists, err := b.Exists(ctx, storagePath)
	if err != nil {
		return err
	}
	if !exists {
		return errBlobNotFound()
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.objectKey(storagePath)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	return nil
}

// Delete implements Backend. S3 deletes are already idempotent.
func (b *S3Backend) Delete(ctx context.Context, storagePath string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(storagePath)),
	})
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	return nil
}

// Exists implements Backend.
func (b *S3Backend) Exists(ctx context.Context, storagePath string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(storagePath)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	return true, nil
}

// ListPaths implements PathLister for the reconciliation sweep.
func (b *S3Backend) ListPaths(ctx context.Context) ([]BlobInfo, error) {
	var blobs []BlobInfo
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
	}
	if b.prefix != "" {
		input.Prefix = aws.String(b.prefix + "/")
	}

	paginator := s3.NewListObjectsV2Paginator(b.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if b.prefix != "" {
				key = strings.TrimPrefix(key, b.prefix+"/")
			}
			blobs = append(blobs, BlobInfo{Path: key, ModTime: aws.ToTime(obj.LastModified)})
		}
	}
	return blobs, nil
}
