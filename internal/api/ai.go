package api

import (
	"errors"
	"net/http"

	"blog-backend/internal/content"
	"blog-backend/internal/flux"
	"blog-backend/internal/generation"
	"blog-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

// AIService exposes the generation endpoints. Every route exists in a public
// and a private flavor; the private ones sit behind the auth middleware and
// are meant for the editor UI, the public ones for the sandbox.
type AIService struct {
	images *generation.ImageGenerator
	drafts *generation.DraftGenerator
	auth   func(http.Handler) http.Handler
}

func NewAIService(images *generation.ImageGenerator, drafts *generation.DraftGenerator, auth func(http.Handler) http.Handler) *AIService {
	return &AIService{images: images, drafts: drafts, auth: auth}
}

func (s *AIService) AddRoutes(r chi.Router) {
	r.Route("/ai", func(r chi.Router) {
		r.Route("/public", func(r chi.Router) {
			r.Post("/generate-image", RestHandler(s.GenerateImage))
			r.Post("/generate-draft-content", RestStreamHandler(s.GenerateDraftContent))
		})
		r.Route("/private", func(r chi.Router) {
			r.Use(s.auth)
			r.Post("/generate-image", RestHandler(s.GenerateImage))
			r.Post("/generate-draft-content", RestStreamHandler(s.GenerateDraftContent))
		})
	})
}

func (s *AIService) GenerateImage(r *http.Request) (any, error) {
	req, err := ParseRequest[api.GenerateImageRequest](r)
	if err != nil {
		return nil, err
	}

	result, err := s.images.Generate(r.Context(), req)
	if err != nil {
		if generation.IsInvalidRequest(err) {
			return nil, CodedError(http.StatusBadRequest, err)
		}

		var statusErr *flux.StatusError
		if errors.As(err, &statusErr) {
			return nil, CodedError(statusErr.Code, statusErr)
		}

		return nil, CodedErrorf(http.StatusInternalServerError, "error generating image: %v", err)
	}

	return result, nil
}

func (s *AIService) GenerateDraftContent(r *http.Request) (ContentStream, error) {
	req, err := ParseRequest[api.DraftContentRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Prompt == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "prompt is required")
	}

	tone := r.URL.Query().Get("tone")

	return func(v *content.StreamValidator) error {
		return s.drafts.Draft(r.Context(), req.Prompt, tone, v)
	}, nil
}
