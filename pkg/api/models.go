package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GenerateImageRequest mirrors the parameter surface of the image provider's
// submission endpoint. The zero values are filled in by the handler defaults.
type GenerateImageRequest struct {
	Prompt           string `json:"prompt"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	Model            string `json:"model"`
	PromptUpsampling bool   `json:"prompt_upsampling"`
	Seed             *int   `json:"seed,omitempty"`
	SafetyTolerance  int    `json:"safety_tolerance"`
	OutputFormat     string `json:"output_format"`
}

type ImageResult struct {
	Id     uuid.UUID `json:"id"`
	Prompt string    `json:"prompt"`
	Model  string    `json:"model"`
	Url    string    `json:"url"`
}

type DraftContentRequest struct {
	Prompt string `json:"prompt"`
}

type MediaObject struct {
	Key          string            `json:"key"`
	Url          string            `json:"url"`
	ContentType  string            `json:"content_type,omitempty"`
	Size         int64             `json:"size"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

type MediaList struct {
	Contents              []MediaObject `json:"contents"`
	KeyCount              int           `json:"key_count"`
	IsTruncated           bool          `json:"is_truncated"`
	NextContinuationToken string        `json:"next_continuation_token,omitempty"`
}

type MediaListQuery struct {
	Prefix            string `schema:"prefix"`
	MaxKeys           int    `schema:"max_keys"`
	ContinuationToken string `schema:"continuation_token"`
	MediaType         string `schema:"media_type"`
}

type UploadResult struct {
	Url        string `json:"url"`
	Provider   string `json:"provider"`
	ProviderId string `json:"provider_id"`
}

type PostCreate struct {
	Title           string          `json:"title"`
	Content         json.RawMessage `json:"content"`
	Tags            []string        `json:"tags,omitempty"`
	IsPublished     bool            `json:"is_published"`
	Excerpt         string          `json:"excerpt,omitempty"`
	Slug            string          `json:"slug,omitempty"`
	FeatureImageUrl string          `json:"feature_image_url,omitempty"`
}

type PostUpdate struct {
	Title           *string         `json:"title,omitempty"`
	Content         json.RawMessage `json:"content,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	IsPublished     *bool           `json:"is_published,omitempty"`
	Excerpt         *string         `json:"excerpt,omitempty"`
	Slug            *string         `json:"slug,omitempty"`
	FeatureImageUrl *string         `json:"feature_image_url,omitempty"`
}

type Post struct {
	Id              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Tags            []string  `json:"tags"`
	IsPublished     bool      `json:"is_published"`
	Excerpt         string    `json:"excerpt,omitempty"`
	Slug            string    `json:"slug"`
	FeatureImageUrl string    `json:"feature_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	AuthorId        uuid.UUID `json:"author_id"`
}

type PostWithContent struct {
	Post
	Content json.RawMessage `json:"content"`
}

type PostList struct {
	Data  []Post `json:"data"`
	Count int64  `json:"count"`
}

type PostListQuery struct {
	Skip      int    `schema:"skip"`
	Limit     int    `schema:"limit"`
	Tag       string `schema:"tag"`
	Published *bool  `schema:"published"`
}

type Tag struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	PostCount int64     `json:"post_count,omitempty"`
}

type TagCreate struct {
	Name string `json:"name"`
}

type UserCreate struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name,omitempty"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

type UserUpdate struct {
	Email       *string `json:"email,omitempty"`
	Password    *string `json:"password,omitempty"`
	FullName    *string `json:"full_name,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsSuperuser *bool   `json:"is_superuser,omitempty"`
}

type User struct {
	Id          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
}

type UserList struct {
	Data  []User `json:"data"`
	Count int64  `json:"count"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type MagicLinkRequest struct {
	Email string `json:"email"`
}

type MagicLinkVerifyRequest struct {
	Token string `json:"token"`
}

type Message struct {
	Message string `json:"message"`
}
