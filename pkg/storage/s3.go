package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// versionMetaKey is the object metadata key holding the blob version, so
// List can report versions with a HEAD request instead of a download.
const versionMetaKey = "blob-version"

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store implements Store on an S3 bucket, one object per blob under a
// key prefix. Objects hold the JSON blob record.
//
// Example usage:
//
//	client, _ := storage.NewS3Client(storage.S3Config{Region: "eu-west-1"})
//	store := storage.NewS3Store(client, "assets-cache", "loader/")
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// S3Config configures the S3 client built by NewS3Client.
type S3Config struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the service endpoint (MinIO, localstack).
	Endpoint string

	// UsePathStyle addresses buckets by path instead of subdomain.
	UsePathStyle bool
}

// NewS3Client builds an S3 client whose credentials come from the standard
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN variables.
func NewS3Client(cfg S3Config) (*s3.Client, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region cannot be empty")
	}

	creds := aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		id := os.Getenv("AWS_ACCESS_KEY_ID")
		secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return aws.Credentials{}, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}, nil
	}))

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  creds,
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts), nil
}

// NewS3Store creates a store on bucket. Keys are prefix + resource name.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *S3Store) nameFromKey(key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, strings.TrimSuffix(s.prefix, "/")), "/")
}

// Get downloads and decodes the blob stored under name.
func (s *S3Store) Get(ctx context.Context, name string) (*Blob, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &StorageError{Backend: "s3", Op: "get", Name: name, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &StorageError{Backend: "s3", Op: "get", Name: name, Err: err}
	}
	blob, err := Decode(data)
	if err != nil {
		return nil, &StorageError{Backend: "s3", Op: "get", Name: name, Err: err}
	}
	if out.LastModified != nil {
		blob.UpdatedAt = *out.LastModified
	}
	return blob, nil
}

// Set uploads blob under name.
func (s *S3Store) Set(ctx context.Context, name string, blob *Blob) error {
	if err := validate(name, blob); err != nil {
		return &StorageError{Backend: "s3", Op: "set", Name: name, Err: err}
	}
	record, err := Encode(blob)
	if err != nil {
		return &StorageError{Backend: "s3", Op: "set", Name: name, Err: err}
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(record),
		ContentLength: aws.Int64(int64(len(record))),
		ContentType:   aws.String("application/json"),
		Metadata:      map[string]string{versionMetaKey: blob.Version},
	})
	if err != nil {
		return &StorageError{Backend: "s3", Op: "set", Name: name, Err: err}
	}
	return nil
}

// Delete removes the object stored under name. S3 deletes are idempotent.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && !isNotFound(err) {
		return &StorageError{Backend: "s3", Op: "delete", Name: name, Err: err}
	}
	return nil
}

// List pages through the prefix and reads each object's version metadata.
func (s *S3Store) List(ctx context.Context) ([]Entry, error) {
	prefix := s.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var entries []Entry
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, &StorageError{Backend: "s3", Op: "list", Err: err}
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return nil, &StorageError{Backend: "s3", Op: "list", Name: key, Err: err}
			}
			e := Entry{
				Name:    s.nameFromKey(key),
				Version: head.Metadata[versionMetaKey],
				Size:    aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				e.UpdatedAt = *obj.LastModified
			}
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Ping checks that the bucket is reachable.
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *S3Store) Close() error {
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}
