package api

import (
	"log/slog"
	"net/http"

	"blog-backend/internal/database"
	"blog-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TagService manages the tag vocabulary shared by all posts.
type TagService struct {
	db   *gorm.DB
	auth func(http.Handler) http.Handler
}

func NewTagService(db *gorm.DB, auth func(http.Handler) http.Handler) *TagService {
	return &TagService{db: db, auth: auth}
}

func (s *TagService) AddRoutes(r chi.Router) {
	r.Route("/tags", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListTags))

		r.Group(func(r chi.Router) {
			r.Use(s.auth, RequireSuperuser)
			r.Post("/", RestHandler(s.CreateTag))
			r.Delete("/{tag_id}", RestHandler(s.DeleteTag))
		})
	})
}

func (s *TagService) ListTags(r *http.Request) (any, error) {
	type tagRow struct {
		Id        uuid.UUID
		Name      string
		PostCount int64
	}

	var rows []tagRow
	err := s.db.WithContext(r.Context()).
		Model(&database.Tag{}).
		Select("tags.id, tags.name, count(post_tags.post_id) as post_count").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("tags.name").
		Scan(&rows).Error
	if err != nil {
		slog.Error("error listing tags", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing tags")
	}

	tags := make([]api.Tag, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, api.Tag{Id: row.Id, Name: row.Name, PostCount: row.PostCount})
	}
	return tags, nil
}

func (s *TagService) CreateTag(r *http.Request) (any, error) {
	req, err := ParseRequest[api.TagCreate](r)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "tag name is required")
	}

	tag := database.Tag{Id: uuid.New(), Name: req.Name}
	result := s.db.WithContext(r.Context()).
		Where("name = ?", req.Name).
		FirstOrCreate(&tag)
	if result.Error != nil {
		slog.Error("error creating tag", "error", result.Error)
		return nil, CodedErrorf(http.StatusInternalServerError, "error creating tag")
	}

	return api.Tag{Id: tag.Id, Name: tag.Name}, nil
}

func (s *TagService) DeleteTag(r *http.Request) (any, error) {
	tagID, err := URLParamUUID(r, "tag_id")
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(r.Context()).Delete(&database.Tag{}, "id = ?", tagID)
	if result.Error != nil {
		slog.Error("error deleting tag", "tag_id", tagID, "error", result.Error)
		return nil, CodedErrorf(http.StatusInternalServerError, "error deleting tag")
	}
	if result.RowsAffected == 0 {
		return nil, CodedErrorf(http.StatusNotFound, "tag not found")
	}

	return api.Message{Message: "Tag deleted successfully"}, nil
}
