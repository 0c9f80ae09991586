package integrationtests

import (
	"bytes"
	"context"
	"testing"
	"time"

	"blog-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucketName = "test-media"

func setupTestMediaStore(t *testing.T, ctx context.Context) (*storage.S3MediaStore, string) {
	t.Helper()

	endpoint := setupMinioContainer(t, ctx)

	store, err := storage.NewS3MediaStore(bucketName, endpoint, storage.S3ClientConfig{
		Endpoint:        endpoint,
		AccessKeyID:     minioUsername,
		SecretAccessKey: minioPassword,
	})
	require.NoError(t, err)
	return store, endpoint
}

func TestS3MediaStore_UploadAndGet(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store, endpoint := setupTestMediaStore(t, ctx)

	content := []byte("image bytes")
	obj, err := store.Upload(ctx, storage.Upload{
		Key:         "task-1.jpeg",
		ContentType: "image/jpeg",
		Body:        bytes.NewReader(content),
		Metadata: storage.Metadata{
			MediaType: "image",
			Prompt:    "a lighthouse",
			Model:     "flux-pro-1.1",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "task-1.jpeg", obj.Key)
	assert.Equal(t, endpoint+"/"+bucketName+"/task-1.jpeg", obj.Url)
	assert.Equal(t, int64(len(content)), obj.Size)

	got, err := store.Get(ctx, "task-1.jpeg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", got.ContentType)
	assert.Equal(t, "image", got.Metadata[storage.MetaMediaType])
	assert.Equal(t, "a lighthouse", got.Metadata[storage.MetaPrompt])
}

func TestS3MediaStore_GetMissing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store, _ := setupTestMediaStore(t, ctx)

	_, err := store.Get(ctx, "missing.png")
	require.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestS3MediaStore_ListFiltersByMediaType(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store, _ := setupTestMediaStore(t, ctx)

	uploads := map[string]string{
		"a.jpeg": "image",
		"b.png":  "image",
		"c.pdf":  "document",
	}
	for key, mediaType := range uploads {
		_, err := store.Upload(ctx, storage.Upload{
			Key:      key,
			Body:     bytes.NewReader([]byte("data")),
			Metadata: storage.Metadata{MediaType: mediaType},
		})
		require.NoError(t, err)
	}

	page, err := store.List(ctx, storage.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, page.Contents, 3)

	page, err = store.List(ctx, storage.ListOptions{MediaType: "image"})
	require.NoError(t, err)
	require.Len(t, page.Contents, 2)
	for _, obj := range page.Contents {
		assert.Equal(t, "image", obj.Metadata[storage.MetaMediaType])
	}
}

func TestS3MediaStore_ListPagination(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store, _ := setupTestMediaStore(t, ctx)

	for _, key := range []string{"a.png", "b.png", "c.png"} {
		_, err := store.Upload(ctx, storage.Upload{Key: key, Body: bytes.NewReader([]byte("data"))})
		require.NoError(t, err)
	}

	page, err := store.List(ctx, storage.ListOptions{MaxKeys: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.KeyCount)
	require.True(t, page.IsTruncated)
	require.NotEmpty(t, page.NextContinuationToken)

	next, err := store.List(ctx, storage.ListOptions{MaxKeys: 2, ContinuationToken: page.NextContinuationToken})
	require.NoError(t, err)
	require.Len(t, next.Contents, 1)
	assert.Equal(t, "c.png", next.Contents[0].Key)
	assert.False(t, next.IsTruncated)
}

func TestS3MediaStore_Delete(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store, _ := setupTestMediaStore(t, ctx)

	_, err := store.Upload(ctx, storage.Upload{Key: "doomed.png", Body: bytes.NewReader([]byte("data"))})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "doomed.png"))

	_, err = store.Get(ctx, "doomed.png")
	require.ErrorIs(t, err, storage.ErrObjectNotFound)

	err = store.Delete(ctx, "doomed.png")
	require.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestS3MediaStore_PresignGet(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store, _ := setupTestMediaStore(t, ctx)

	_, err := store.Upload(ctx, storage.Upload{Key: "signed.png", Body: bytes.NewReader([]byte("data"))})
	require.NoError(t, err)

	url, err := store.PresignGet(ctx, "signed.png", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "signed.png")
	assert.Contains(t, url, "X-Amz-Signature")
}
