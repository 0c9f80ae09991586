package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// Metadata keys attached to every stored object.
const (
	MetaMediaType = "media_type"
	MetaPrompt    = "prompt"
	MetaModel     = "model"
)

var (
	ErrObjectNotFound   = errors.New("object not found")
	ErrInvalidExtension = errors.New("file type not allowed")
)

// StorageError wraps the underlying I/O or transport failure so callers never
// see raw SDK errors. Storage failures are always fatal for the current
// operation; no store retries internally.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

type Upload struct {
	Key         string
	ContentType string
	Body        io.Reader
	Metadata    Metadata
}

type Metadata struct {
	MediaType string
	Prompt    string
	Model     string
}

type StoredObject struct {
	Key          string
	Url          string
	ContentType  string
	Size         int64
	Metadata     map[string]string
	LastModified time.Time
}

type ListOptions struct {
	Prefix            string
	MaxKeys           int32
	ContinuationToken string
	MediaType         string
}

type ListPage struct {
	Contents              []StoredObject
	KeyCount              int
	IsTruncated           bool
	NextContinuationToken string
}

// MediaStore persists binary blobs and hands back publicly reachable URLs.
type MediaStore interface {
	Upload(ctx context.Context, up Upload) (*StoredObject, error)

	Get(ctx context.Context, key string) (*StoredObject, error)

	List(ctx context.Context, opts ListOptions) (*ListPage, error)

	Delete(ctx context.Context, key string) error

	Provider() string
}
