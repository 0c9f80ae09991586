package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const writeChunkSize = 1024 * 1024

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

// LocalMediaStore writes media files under a single directory and serves them
// from a static base URL. Uploads with the same key overwrite the previous
// file, so deterministic keys stay idempotent.
type LocalMediaStore struct {
	dir     string
	baseURL string
}

var _ MediaStore = (*LocalMediaStore)(nil)

func NewLocalMediaStore(dir, baseURL string) (*LocalMediaStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", abs, err)
	}

	return &LocalMediaStore{dir: abs, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *LocalMediaStore) Provider() string { return ProviderLocal }

func validExtension(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return ext != "" && allowedExtensions[ext]
}

func (s *LocalMediaStore) objectURL(key string) string {
	return s.baseURL + "/uploads/" + key
}

func (s *LocalMediaStore) Upload(ctx context.Context, up Upload) (*StoredObject, error) {
	if !validExtension(up.Key) {
		return nil, &StorageError{Op: "upload", Key: up.Key, Err: ErrInvalidExtension}
	}

	path := filepath.Join(s.dir, filepath.Base(up.Key))

	dst, err := os.Create(path)
	if err != nil {
		return nil, &StorageError{Op: "upload", Key: up.Key, Err: err}
	}

	buf := make([]byte, writeChunkSize)
	if _, err := io.CopyBuffer(dst, up.Body, buf); err != nil {
		dst.Close()
		s.removePartial(path)
		return nil, &StorageError{Op: "upload", Key: up.Key, Err: err}
	}
	if err := dst.Close(); err != nil {
		s.removePartial(path)
		return nil, &StorageError{Op: "upload", Key: up.Key, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &StorageError{Op: "upload", Key: up.Key, Err: err}
	}

	slog.Info("stored media file", "key", up.Key, "path", path, "size", info.Size())

	return &StoredObject{
		Key:          up.Key,
		Url:          s.objectURL(up.Key),
		ContentType:  up.ContentType,
		Size:         info.Size(),
		Metadata:     metadataMap(up.Metadata),
		LastModified: info.ModTime(),
	}, nil
}

// removePartial deletes a partially written file so failed uploads leave no
// orphans behind. Best effort: a failed delete is logged, not returned, so it
// cannot mask the original write error.
func (s *LocalMediaStore) removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Error("failed to clean up partial upload", "path", path, "error", err)
	}
}

func (s *LocalMediaStore) Get(ctx context.Context, key string) (*StoredObject, error) {
	path := filepath.Join(s.dir, filepath.Base(key))
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &StorageError{Op: "get", Key: key, Err: ErrObjectNotFound}
		}
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}

	return &StoredObject{
		Key:          key,
		Url:          s.objectURL(key),
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}

func (s *LocalMediaStore) List(ctx context.Context, opts ListOptions) (*ListPage, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &StorageError{Op: "list", Key: opts.Prefix, Err: err}
	}

	maxKeys := int(opts.MaxKeys)
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	page := &ListPage{Contents: []StoredObject{}}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), opts.Prefix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	start := 0
	if opts.ContinuationToken != "" {
		start = sort.SearchStrings(names, opts.ContinuationToken)
	}

	for _, name := range names[start:] {
		if len(page.Contents) == maxKeys {
			page.IsTruncated = true
			page.NextContinuationToken = name
			break
		}
		obj, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		page.Contents = append(page.Contents, *obj)
	}
	page.KeyCount = len(page.Contents)

	return page, nil
}

func (s *LocalMediaStore) Delete(ctx context.Context, key string) error {
	path := filepath.Join(s.dir, filepath.Base(key))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return &StorageError{Op: "delete", Key: key, Err: ErrObjectNotFound}
		}
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func metadataMap(meta Metadata) map[string]string {
	return map[string]string{
		MetaMediaType: meta.MediaType,
		MetaPrompt:    meta.Prompt,
		MetaModel:     meta.Model,
	}
}
