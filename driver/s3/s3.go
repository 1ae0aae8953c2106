// Package s3 provides a storage backend for Amazon S3 and S3-compatible
// services (MinIO, localstack).
//
// Importing the package registers it as "S3Handler". The backend is
// suspend-capable: the AWS SDK parks the goroutine at its network
// boundaries.
package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/ianepperson/filestorage"
)

// Config holds the constructor arguments for the S3 backend.
type Config struct {
	// Bucket is the target bucket. Required.
	Bucket string

	// ACL is applied to every saved object ("public-read" and friends).
	// Empty leaves the bucket default in place.
	ACL string

	// Region is the bucket's region.
	Region string

	// Endpoint overrides the service URL, for S3-compatible services.
	Endpoint string

	// PathStyle addresses the bucket in the path instead of the host.
	// Most S3-compatible services require it.
	PathStyle bool

	// AccessKeyID, SecretAccessKey and SessionToken are explicit static
	// credentials. When empty the SDK's default chain applies.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Profile selects a shared-config profile for the default chain.
	Profile string

	// MaxRetries caps the SDK's retry attempts. Zero keeps the default.
	MaxRetries int
}

// Backend stores files as objects in an S3 bucket.
type Backend struct {
	cfg Config

	mu        sync.Mutex
	client    *s3.Client
	clientErr error
}

// New creates an S3 backend. No network I/O happens here; the client is
// built lazily so a misconfigured store fails at validation, not at
// construction.
func New(cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	return &Backend{cfg: cfg}, nil
}

// AsyncOK implements filestorage.Backend.
func (b *Backend) AsyncOK() bool { return true }

func (b *Backend) getClient(ctx context.Context) (*s3.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil || b.clientErr != nil {
		return b.client, b.clientErr
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if b.cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(b.cfg.Region))
	}
	if b.cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(b.cfg.Profile))
	}
	if b.cfg.MaxRetries > 0 {
		loadOpts = append(loadOpts, awsconfig.WithRetryMaxAttempts(b.cfg.MaxRetries))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		b.clientErr = fmt.Errorf("s3: %w", err)
		return nil, b.clientErr
	}

	if b.cfg.AccessKeyID != "" && b.cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(
			b.cfg.AccessKeyID,
			b.cfg.SecretAccessKey,
			b.cfg.SessionToken,
		)
	}

	b.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if b.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(b.cfg.Endpoint)
		}
		if b.cfg.PathStyle {
			o.UsePathStyle = true
		}
	})
	return b.client, nil
}

// key maps an item to its object key.
func key(item filestorage.FileItem) string {
	return path.Join(append(append([]string{}, item.Path...), item.Filename)...)
}

// Validate implements filestorage.Backend. It proves the credentials and
// bucket by a full save, exists and delete round trip on a throwaway
// object.
func (b *Backend) Validate(ctx context.Context) error {
	if _, err := b.getClient(ctx); err != nil {
		return err
	}

	probe := filestorage.NewItem("__delete_me__"+uuid.NewString()+".txt").
		WithData(strings.NewReader("connectivity probe"))

	if _, err := b.Save(ctx, probe); err != nil {
		return fmt.Errorf("s3: validation save to bucket %q: %w", b.cfg.Bucket, err)
	}
	ok, err := b.Exists(ctx, probe)
	if err != nil {
		return fmt.Errorf("s3: validation read back: %w", err)
	}
	if !ok {
		return fmt.Errorf("s3: validation object missing after save in bucket %q", b.cfg.Bucket)
	}
	if err := b.Delete(ctx, probe); err != nil {
		return fmt.Errorf("s3: validation delete: %w", err)
	}
	return nil
}

// Exists implements filestorage.Backend.
func (b *Backend) Exists(ctx context.Context, item filestorage.FileItem) (bool, error) {
	client, err := b.getClient(ctx)
	if err != nil {
		return false, err
	}
	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key(item)),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Save implements filestorage.Backend. The item's name is always kept;
// an existing object with the same key is overwritten, matching S3
// semantics.
func (b *Backend) Save(ctx context.Context, item filestorage.FileItem) (string, error) {
	client, err := b.getClient(ctx)
	if err != nil {
		return "", err
	}
	body, err := item.Open(ctx)
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key(item)),
		Body:   body,
	}
	if ct := item.ContentType(); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if b.cfg.ACL != "" {
		input.ACL = types.ObjectCannedACL(b.cfg.ACL)
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return "", nil
}

// Delete implements filestorage.Backend. S3 deletes are idempotent.
func (b *Backend) Delete(ctx context.Context, item filestorage.FileItem) error {
	client, err := b.getClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key(item)),
	})
	return err
}

// Size implements filestorage.SizedBackend.
func (b *Backend) Size(ctx context.Context, item filestorage.FileItem) (int64, error) {
	head, err := b.head(ctx, item)
	if err != nil {
		return 0, err
	}
	if head.ContentLength == nil {
		return 0, nil
	}
	return *head.ContentLength, nil
}

// ModTime implements filestorage.TimedBackend.
func (b *Backend) ModTime(ctx context.Context, item filestorage.FileItem) (time.Time, error) {
	head, err := b.head(ctx, item)
	if err != nil {
		return time.Time{}, err
	}
	if head.LastModified == nil {
		return time.Time{}, nil
	}
	return *head.LastModified, nil
}

func (b *Backend) head(ctx context.Context, item filestorage.FileItem) (*s3.HeadObjectOutput, error) {
	client, err := b.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key(item)),
	})
}
