package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const DefaultPresignExpiry = 3600 * time.Second

// S3MediaStore stores media in a single bucket on any S3-compatible backend
// (MinIO in the default deployment). The bucket is created lazily on first
// use; racing creators are tolerated because "already exists" counts as
// success.
type S3MediaStore struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	bucket   string
	baseURL  string
}

var _ MediaStore = (*S3MediaStore)(nil)

func NewS3MediaStore(bucket, baseURL string, cfg S3ClientConfig) (*S3MediaStore, error) {
	client, err := initializeS3Client(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 client: %w", err)
	}

	return &S3MediaStore{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		bucket:   bucket,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (s *S3MediaStore) Provider() string { return ProviderS3 }

func (s *S3MediaStore) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key)
}

func (s *S3MediaStore) ensureBucket(ctx context.Context) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var existErr *types.BucketAlreadyExists
		var ownedErr *types.BucketAlreadyOwnedByYou
		if errors.As(err, &existErr) || errors.As(err, &ownedErr) {
			return nil
		}

		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}

	slog.Info("bucket created", "bucket", s.bucket)

	return nil
}

func (s *S3MediaStore) Upload(ctx context.Context, up Upload) (*StoredObject, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, &StorageError{Op: "upload", Key: up.Key, Err: err}
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(up.Key),
		Body:        up.Body,
		ContentType: aws.String(up.ContentType),
		Metadata:    metadataMap(up.Metadata),
	})
	if err != nil {
		return nil, &StorageError{Op: "upload", Key: up.Key, Err: err}
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(up.Key),
	})
	if err != nil {
		return nil, &StorageError{Op: "upload", Key: up.Key, Err: err}
	}

	slog.Info("object uploaded", "bucket", s.bucket, "key", up.Key)

	return &StoredObject{
		Key:          up.Key,
		Url:          s.objectURL(up.Key),
		ContentType:  aws.ToString(head.ContentType),
		Size:         aws.ToInt64(head.ContentLength),
		Metadata:     head.Metadata,
		LastModified: aws.ToTime(head.LastModified),
	}, nil
}

func (s *S3MediaStore) Get(ctx context.Context, key string) (*StoredObject, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &StorageError{Op: "get", Key: key, Err: ErrObjectNotFound}
		}
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}

	return &StoredObject{
		Key:          key,
		Url:          s.objectURL(key),
		ContentType:  aws.ToString(head.ContentType),
		Size:         aws.ToInt64(head.ContentLength),
		Metadata:     head.Metadata,
		LastModified: aws.ToTime(head.LastModified),
	}, nil
}

func (s *S3MediaStore) List(ctx context.Context, opts ListOptions) (*ListPage, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, &StorageError{Op: "list", Key: opts.Prefix, Err: err}
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}
	if opts.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(opts.MaxKeys)
	}
	if opts.ContinuationToken != "" {
		input.ContinuationToken = aws.String(opts.ContinuationToken)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, &StorageError{Op: "list", Key: opts.Prefix, Err: err}
	}

	page := &ListPage{
		Contents:              []StoredObject{},
		KeyCount:              int(aws.ToInt32(out.KeyCount)),
		IsTruncated:           aws.ToBool(out.IsTruncated),
		NextContinuationToken: aws.ToString(out.NextContinuationToken),
	}

	for _, obj := range out.Contents {
		head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    obj.Key,
		})
		if err != nil {
			return nil, &StorageError{Op: "list", Key: aws.ToString(obj.Key), Err: err}
		}

		if opts.MediaType != "" && head.Metadata[MetaMediaType] != opts.MediaType {
			continue
		}

		page.Contents = append(page.Contents, StoredObject{
			Key:          aws.ToString(obj.Key),
			Url:          s.objectURL(aws.ToString(obj.Key)),
			ContentType:  aws.ToString(head.ContentType),
			Size:         aws.ToInt64(obj.Size),
			Metadata:     head.Metadata,
			LastModified: aws.ToTime(obj.LastModified),
		})
	}

	return page, nil
}

func (s *S3MediaStore) Delete(ctx context.Context, key string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}

	// S3 deletes of absent keys succeed silently, so probe first to give
	// callers the not-found distinction.
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isNotFound(err) {
			return &StorageError{Op: "delete", Key: key, Err: ErrObjectNotFound}
		}
		return &StorageError{Op: "delete", Key: key, Err: err}
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}

	return nil
}

// PresignGet returns a time-limited signed URL for direct object access.
func (s *S3MediaStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", &StorageError{Op: "presign", Key: key, Err: err}
	}

	return req.URL, nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
