// Package generation orchestrates the AI flows: image generation through the
// Flux provider and structured draft content through the language model.
package generation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"blog-backend/internal/database"
	"blog-backend/internal/flux"
	"blog-backend/internal/storage"
	"blog-backend/pkg/api"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultImageSize       = 512
	minImageSize           = 64
	maxImageSize           = 2048
	defaultSafetyTolerance = 2
	maxSafetyTolerance     = 3
	defaultOutputFormat    = "jpeg"
)

// InvalidRequestError reports a request that fails validation before anything
// is submitted to the provider.
type InvalidRequestError struct {
	Msg string
}

func (e *InvalidRequestError) Error() string {
	return e.Msg
}

var knownModels = map[string]bool{
	flux.ModelFluxPro11:      true,
	flux.ModelFluxPro:        true,
	flux.ModelFluxDev:        true,
	flux.ModelFluxPro11Ultra: true,
}

// ImageGenerator runs the full image pipeline: submit to the provider, poll
// to completion, download the asset, upload it to media storage, and record
// it in the database. Each call is independent; there is no queue or retry
// beyond the poller's own budget.
type ImageGenerator struct {
	client *flux.Client
	poller *flux.Poller
	store  storage.MediaStore
	db     *gorm.DB
}

func NewImageGenerator(client *flux.Client, poller *flux.Poller, store storage.MediaStore, db *gorm.DB) *ImageGenerator {
	return &ImageGenerator{client: client, poller: poller, store: store, db: db}
}

func applyDefaults(req *api.GenerateImageRequest) {
	if req.Model == "" {
		req.Model = flux.ModelFluxPro11
	}
	if req.Width == 0 {
		req.Width = defaultImageSize
	}
	if req.Height == 0 {
		req.Height = defaultImageSize
	}
	if req.OutputFormat == "" {
		req.OutputFormat = defaultOutputFormat
	}
	if req.SafetyTolerance == 0 {
		req.SafetyTolerance = defaultSafetyTolerance
	}
}

func validateRequest(req api.GenerateImageRequest) error {
	if req.Prompt == "" {
		return &InvalidRequestError{Msg: "prompt is required"}
	}
	if !knownModels[req.Model] {
		return &InvalidRequestError{Msg: fmt.Sprintf("unknown model %q", req.Model)}
	}
	if req.Width < minImageSize || req.Width > maxImageSize {
		return &InvalidRequestError{Msg: fmt.Sprintf("width %d out of range %d-%d", req.Width, minImageSize, maxImageSize)}
	}
	if req.Height < minImageSize || req.Height > maxImageSize {
		return &InvalidRequestError{Msg: fmt.Sprintf("height %d out of range %d-%d", req.Height, minImageSize, maxImageSize)}
	}
	if req.SafetyTolerance < 0 || req.SafetyTolerance > maxSafetyTolerance {
		return &InvalidRequestError{Msg: fmt.Sprintf("safety_tolerance %d out of range 0-%d", req.SafetyTolerance, maxSafetyTolerance)}
	}
	if req.OutputFormat != "jpeg" && req.OutputFormat != "png" {
		return &InvalidRequestError{Msg: fmt.Sprintf("output format %q must be jpeg or png", req.OutputFormat)}
	}
	return nil
}

// Generate runs one end-to-end image generation. Terminal provider failures
// come back as *flux.StatusError; request validation failures as
// *InvalidRequestError; everything else is an internal failure.
func (g *ImageGenerator) Generate(ctx context.Context, req api.GenerateImageRequest) (*api.ImageResult, error) {
	applyDefaults(&req)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	taskID, err := g.client.Submit(ctx, req.Model, flux.SubmitRequest{
		Prompt:           req.Prompt,
		Width:            req.Width,
		Height:           req.Height,
		PromptUpsampling: req.PromptUpsampling,
		Seed:             req.Seed,
		SafetyTolerance:  req.SafetyTolerance,
		OutputFormat:     req.OutputFormat,
	})
	if err != nil {
		return nil, err
	}

	// The provider issues UUID task ids. The returned descriptor and the
	// stored record both reuse it so callers can correlate the asset with
	// the originating task.
	imageId, err := uuid.Parse(taskID)
	if err != nil {
		return nil, fmt.Errorf("provider returned malformed task id %q: %w", taskID, err)
	}

	result, err := g.poller.Poll(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if result.SampleURL == "" {
		return nil, &flux.StatusError{Code: http.StatusInternalServerError, Message: "Image generation failed"}
	}

	data, contentType, err := g.client.Download(ctx, result.SampleURL)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s.%s", taskID, req.OutputFormat)
	stored, err := g.store.Upload(ctx, storage.Upload{
		Key:         filename,
		ContentType: contentType,
		Body:        bytes.NewReader(data),
		Metadata: storage.Metadata{
			MediaType: "image",
			Prompt:    req.Prompt,
			Model:     req.Model,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store generated image %s: %w", filename, err)
	}

	media := database.MediaObject{
		Id:         imageId,
		Filename:   filename,
		Prompt:     req.Prompt,
		Model:      req.Model,
		Url:        stored.Url,
		Provider:   g.store.Provider(),
		ProviderId: taskID,
		MediaType:  "image",
	}
	if err := g.db.WithContext(ctx).Create(&media).Error; err != nil {
		// The object is already uploaded; leave it for a later sweep.
		slog.Error("failed to record generated image", "key", filename, "error", err)
		return nil, fmt.Errorf("failed to record generated image %s: %w", filename, err)
	}

	slog.Info("image generated", "task_id", taskID, "key", filename, "provider", g.store.Provider())

	return &api.ImageResult{
		Id:     imageId,
		Prompt: req.Prompt,
		Model:  req.Model,
		Url:    stored.Url,
	}, nil
}

// IsInvalidRequest reports whether err is a request validation failure.
func IsInvalidRequest(err error) bool {
	var invalid *InvalidRequestError
	return errors.As(err, &invalid)
}
