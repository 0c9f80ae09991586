package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"blog-backend/internal/database"
	"blog-backend/internal/storage"
	"blog-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

const maxUploadBytes = 32 << 20

// MediaService serves the media library: direct uploads plus listing,
// inspection, and deletion of stored objects. Objects live in the MediaStore;
// the database row is the catalog entry the editor searches.
type MediaService struct {
	store storage.MediaStore
	db    *gorm.DB
	auth  func(http.Handler) http.Handler
}

func NewMediaService(store storage.MediaStore, db *gorm.DB, auth func(http.Handler) http.Handler) *MediaService {
	return &MediaService{store: store, db: db, auth: auth}
}

func (s *MediaService) AddRoutes(r chi.Router) {
	r.Route("/media", func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/upload/{id}", RestHandler(s.UploadMedia))
		r.Get("/", RestHandler(s.ListMedia))
		r.Get("/{key}", RestHandler(s.GetMedia))
		r.Delete("/{key}", RestHandler(s.DeleteMedia))
	})
}

func (s *MediaService) UploadMedia(r *http.Request) (any, error) {
	id, err := URLParamUUID(r, "id")
	if err != nil {
		return nil, err
	}

	mediaType := r.URL.Query().Get("media_type")
	if mediaType == "" {
		mediaType = "image"
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "missing file in upload")
	}
	defer file.Close()

	key := fmt.Sprintf("%s%s", id, filepath.Ext(header.Filename))
	stored, err := s.store.Upload(r.Context(), storage.Upload{
		Key:         key,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Metadata: storage.Metadata{
			MediaType: mediaType,
			Model:     r.URL.Query().Get("model"),
		},
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidExtension) {
			return nil, CodedErrorf(http.StatusBadRequest, "file type not allowed: %s", header.Filename)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error uploading media: %v", err)
	}

	media := database.MediaObject{
		Id:         id,
		Filename:   key,
		Model:      r.URL.Query().Get("model"),
		Url:        stored.Url,
		Provider:   s.store.Provider(),
		ProviderId: key,
		MediaType:  mediaType,
	}
	if err := s.db.WithContext(r.Context()).Create(&media).Error; err != nil {
		slog.Error("failed to record uploaded media", "key", key, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error recording media upload")
	}

	return api.UploadResult{
		Url:        stored.Url,
		Provider:   s.store.Provider(),
		ProviderId: key,
	}, nil
}

func (s *MediaService) ListMedia(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[api.MediaListQuery](r)
	if err != nil {
		return nil, err
	}

	page, err := s.store.List(r.Context(), storage.ListOptions{
		Prefix:            query.Prefix,
		MaxKeys:           int32(query.MaxKeys),
		ContinuationToken: query.ContinuationToken,
		MediaType:         query.MediaType,
	})
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing media: %v", err)
	}

	result := api.MediaList{
		Contents:              make([]api.MediaObject, 0, len(page.Contents)),
		KeyCount:              page.KeyCount,
		IsTruncated:           page.IsTruncated,
		NextContinuationToken: page.NextContinuationToken,
	}
	for _, obj := range page.Contents {
		result.Contents = append(result.Contents, toMediaObject(obj))
	}

	return result, nil
}

func (s *MediaService) GetMedia(r *http.Request) (any, error) {
	key := chi.URLParam(r, "key")

	obj, err := s.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "media %s not found", key)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error fetching media: %v", err)
	}

	return toMediaObject(*obj), nil
}

func (s *MediaService) DeleteMedia(r *http.Request) (any, error) {
	key := chi.URLParam(r, "key")

	if err := s.store.Delete(r.Context(), key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "media %s not found", key)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error deleting media: %v", err)
	}

	// The catalog row is best effort; the object is already gone.
	if err := s.db.WithContext(r.Context()).
		Where("filename = ?", key).
		Delete(&database.MediaObject{}).Error; err != nil {
		slog.Error("failed to delete media record", "key", key, "error", err)
	}

	return api.Message{Message: "Media deleted successfully"}, nil
}

func toMediaObject(obj storage.StoredObject) api.MediaObject {
	return api.MediaObject{
		Key:          obj.Key,
		Url:          obj.Url,
		ContentType:  obj.ContentType,
		Size:         obj.Size,
		Metadata:     obj.Metadata,
		LastModified: obj.LastModified,
	}
}
