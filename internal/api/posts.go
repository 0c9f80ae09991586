package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"blog-backend/internal/content"
	"blog-backend/internal/database"
	"blog-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultPageSize = 20

// PostService owns the post catalog. Published posts are world readable;
// drafts are visible to any authenticated user and all mutations require a
// superuser.
type PostService struct {
	db   *gorm.DB
	auth func(http.Handler) http.Handler
}

func NewPostService(db *gorm.DB, auth func(http.Handler) http.Handler) *PostService {
	return &PostService{db: db, auth: auth}
}

func (s *PostService) AddRoutes(r chi.Router) {
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListPosts))
		r.Get("/slug/{slug}", RestHandler(s.GetPostBySlug))
		r.Get("/{post_id}", RestHandler(s.GetPost))

		r.Group(func(r chi.Router) {
			r.Use(s.auth, RequireSuperuser)
			r.Post("/", RestHandler(s.CreatePost))
			r.Put("/{post_id}", RestHandler(s.UpdatePost))
			r.Delete("/{post_id}", RestHandler(s.DeletePost))
		})
	})

	r.Route("/drafts", func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/", RestHandler(s.ListDrafts))
		r.Get("/{draft_id}", RestHandler(s.GetDraft))
	})
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// validateContent rejects documents that do not conform to the editor
// schema, so nothing unrenderable ever reaches the database.
func validateContent(raw json.RawMessage) error {
	var doc content.Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return CodedErrorf(http.StatusUnprocessableEntity, "invalid post content: %v", err)
	}
	if err := doc.Validate(false); err != nil {
		return CodedErrorf(http.StatusUnprocessableEntity, "invalid post content: %v", err)
	}
	return nil
}

func (s *PostService) resolveTags(tx *gorm.DB, names []string) ([]database.Tag, error) {
	tags := make([]database.Tag, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var tag database.Tag
		if err := tx.Where("name = ?", name).
			Attrs(database.Tag{Id: uuid.New()}).
			FirstOrCreate(&tag).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (s *PostService) ListPosts(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[api.PostListQuery](r)
	if err != nil {
		return nil, err
	}

	// Anonymous listing defaults to published posts only.
	published := true
	if query.Published != nil {
		published = *query.Published
	}

	return s.listPosts(r, query, &published)
}

func (s *PostService) ListDrafts(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[api.PostListQuery](r)
	if err != nil {
		return nil, err
	}

	published := false
	return s.listPosts(r, query, &published)
}

func (s *PostService) listPosts(r *http.Request, query api.PostListQuery, published *bool) (any, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	q := s.db.WithContext(r.Context()).Model(&database.Post{})
	if published != nil {
		q = q.Where("posts.is_published = ?", *published)
	}
	if query.Tag != "" {
		q = q.Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name = ?", query.Tag)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		slog.Error("error counting posts", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing posts")
	}

	var posts []database.Post
	if err := q.Preload("Tags").
		Order("posts.created_at DESC").
		Offset(query.Skip).Limit(limit).
		Find(&posts).Error; err != nil {
		slog.Error("error listing posts", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing posts")
	}

	result := api.PostList{Data: make([]api.Post, 0, len(posts)), Count: count}
	for _, post := range posts {
		result.Data = append(result.Data, toPost(post))
	}
	return result, nil
}

func (s *PostService) getPost(r *http.Request, paramName string, published *bool) (any, error) {
	postID, err := URLParamUUID(r, paramName)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(r.Context()).Preload("Tags")
	if published != nil {
		q = q.Where("is_published = ?", *published)
	}

	var post database.Post
	if err := q.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "post not found")
		}
		slog.Error("error getting post", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving post")
	}

	return toPostWithContent(post), nil
}

func (s *PostService) GetPost(r *http.Request) (any, error) {
	return s.getPost(r, "post_id", nil)
}

func (s *PostService) GetDraft(r *http.Request) (any, error) {
	published := false
	return s.getPost(r, "draft_id", &published)
}

func (s *PostService) GetPostBySlug(r *http.Request) (any, error) {
	slug := chi.URLParam(r, "slug")

	var post database.Post
	if err := s.db.WithContext(r.Context()).Preload("Tags").
		First(&post, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "post not found")
		}
		slog.Error("error getting post by slug", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving post")
	}

	return toPostWithContent(post), nil
}

func (s *PostService) CreatePost(r *http.Request) (any, error) {
	req, err := ParseRequest[api.PostCreate](r)
	if err != nil {
		return nil, err
	}

	if req.Title == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "title is required")
	}
	if len(req.Content) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "content is required")
	}
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}

	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Title)
	}

	author := CurrentUser(r.Context())

	post := database.Post{
		Id:              uuid.New(),
		Title:           req.Title,
		Slug:            slug,
		Content:         datatypes.JSON(req.Content),
		Excerpt:         req.Excerpt,
		FeatureImageUrl: req.FeatureImageUrl,
		IsPublished:     req.IsPublished,
		AuthorId:        author.Id,
	}

	err = s.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		tags, err := s.resolveTags(tx, req.Tags)
		if err != nil {
			return err
		}
		post.Tags = tags
		return tx.Create(&post).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, CodedErrorf(http.StatusConflict, "a post with slug %q already exists", slug)
		}
		slog.Error("error creating post", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error creating post")
	}

	return toPostWithContent(post), nil
}

func (s *PostService) UpdatePost(r *http.Request) (any, error) {
	postID, err := URLParamUUID(r, "post_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.PostUpdate](r)
	if err != nil {
		return nil, err
	}
	if len(req.Content) > 0 {
		if err := validateContent(req.Content); err != nil {
			return nil, err
		}
	}

	var post database.Post
	err = s.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Tags").First(&post, "id = ?", postID).Error; err != nil {
			return err
		}

		if req.Title != nil {
			post.Title = *req.Title
		}
		if req.Slug != nil {
			post.Slug = *req.Slug
		}
		if len(req.Content) > 0 {
			post.Content = datatypes.JSON(req.Content)
		}
		if req.Excerpt != nil {
			post.Excerpt = *req.Excerpt
		}
		if req.FeatureImageUrl != nil {
			post.FeatureImageUrl = *req.FeatureImageUrl
		}
		if req.IsPublished != nil {
			post.IsPublished = *req.IsPublished
		}

		if req.Tags != nil {
			tags, err := s.resolveTags(tx, req.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&post).Association("Tags").Replace(tags); err != nil {
				return err
			}
			post.Tags = tags
		}

		return tx.Save(&post).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "post not found")
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, CodedErrorf(http.StatusConflict, "a post with that slug already exists")
		}
		slog.Error("error updating post", "post_id", postID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error updating post")
	}

	return toPost(post), nil
}

func (s *PostService) DeletePost(r *http.Request) (any, error) {
	postID, err := URLParamUUID(r, "post_id")
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(r.Context()).Delete(&database.Post{}, "id = ?", postID)
	if result.Error != nil {
		slog.Error("error deleting post", "post_id", postID, "error", result.Error)
		return nil, CodedErrorf(http.StatusInternalServerError, "error deleting post")
	}
	if result.RowsAffected == 0 {
		return nil, CodedErrorf(http.StatusNotFound, "post not found")
	}

	return api.Message{Message: "Post deleted successfully"}, nil
}

func toPost(post database.Post) api.Post {
	tags := make([]string, 0, len(post.Tags))
	for _, tag := range post.Tags {
		tags = append(tags, tag.Name)
	}

	return api.Post{
		Id:              post.Id,
		Title:           post.Title,
		Tags:            tags,
		IsPublished:     post.IsPublished,
		Excerpt:         post.Excerpt,
		Slug:            post.Slug,
		FeatureImageUrl: post.FeatureImageUrl,
		CreatedAt:       post.CreatedAt,
		UpdatedAt:       post.UpdatedAt,
		AuthorId:        post.AuthorId,
	}
}

func toPostWithContent(post database.Post) api.PostWithContent {
	return api.PostWithContent{
		Post:    toPost(post),
		Content: json.RawMessage(post.Content),
	}
}
