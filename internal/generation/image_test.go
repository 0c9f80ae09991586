package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blog-backend/internal/database"
	"blog-backend/internal/flux"
	"blog-backend/internal/storage"
	"blog-backend/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fluxServer struct {
	taskID     string
	statuses   []string
	polls      int
	imageBytes []byte
}

func (f *fluxServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /flux-pro-1.1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": f.taskID})
	})
	mux.HandleFunc("GET /get_result", func(w http.ResponseWriter, r *http.Request) {
		status := f.statuses[min(f.polls, len(f.statuses)-1)]
		f.polls++

		resp := map[string]any{"status": status}
		if status == "Ready" {
			resp["result"] = map[string]string{"sample": "http://" + r.Host + "/sample"}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("GET /sample", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(f.imageBytes)
	})
	return mux
}

func setupGenerator(t *testing.T, fs *fluxServer, maxAttempts int) (*ImageGenerator, *gorm.DB) {
	t.Helper()

	server := httptest.NewServer(fs.handler())
	t.Cleanup(server.Close)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&database.MediaObject{}))

	store, err := storage.NewLocalMediaStore(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)

	client := flux.NewClient(server.URL, "test-key")
	poller := flux.NewPoller(client, time.Millisecond, maxAttempts)

	return NewImageGenerator(client, poller, store, db), db
}

func TestGenerateImage(t *testing.T) {
	fs := &fluxServer{
		taskID:     "0c9f237e-0d21-4a9f-8bc6-2f38d2b47e11",
		statuses:   []string{"Pending", "Pending", "Ready"},
		imageBytes: []byte("fake image bytes"),
	}
	gen, db := setupGenerator(t, fs, 10)

	result, err := gen.Generate(context.Background(), api.GenerateImageRequest{
		Prompt: "a lighthouse at dusk",
	})
	require.NoError(t, err)

	// The descriptor id is the provider task id, not a fresh one.
	assert.Equal(t, fs.taskID, result.Id.String())
	assert.Equal(t, "a lighthouse at dusk", result.Prompt)
	assert.Equal(t, flux.ModelFluxPro11, result.Model)
	assert.Equal(t, fmt.Sprintf("http://localhost:8000/uploads/%s.jpeg", fs.taskID), result.Url)
	assert.Equal(t, 3, fs.polls)

	var media database.MediaObject
	require.NoError(t, db.First(&media, "id = ?", result.Id).Error)
	assert.Equal(t, fs.taskID+".jpeg", media.Filename)
	assert.Equal(t, fs.taskID, media.ProviderId)
	assert.Equal(t, storage.ProviderLocal, media.Provider)
	assert.Equal(t, "image", media.MediaType)
}

func TestGenerateImageMalformedTaskID(t *testing.T) {
	fs := &fluxServer{
		taskID:   "not-a-uuid",
		statuses: []string{"Ready"},
	}
	gen, _ := setupGenerator(t, fs, 10)

	_, err := gen.Generate(context.Background(), api.GenerateImageRequest{Prompt: "p"})
	assert.ErrorContains(t, err, "malformed task id")
	assert.Zero(t, fs.polls)
}

func TestGenerateImageModerated(t *testing.T) {
	fs := &fluxServer{
		taskID:   "59a4f2c1-6c4b-47f0-9f1e-30b06f9adf05",
		statuses: []string{"Request Moderated"},
	}
	gen, db := setupGenerator(t, fs, 10)

	_, err := gen.Generate(context.Background(), api.GenerateImageRequest{Prompt: "something off-limits"})

	var statusErr *flux.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Equal(t, "Request was moderated due to content policy", statusErr.Message)

	// Nothing should have been persisted.
	var count int64
	require.NoError(t, db.Model(&database.MediaObject{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGenerateImageTimeout(t *testing.T) {
	fs := &fluxServer{
		taskID:   "59a4f2c1-6c4b-47f0-9f1e-30b06f9adf05",
		statuses: []string{"Pending"},
	}
	gen, _ := setupGenerator(t, fs, 3)

	_, err := gen.Generate(context.Background(), api.GenerateImageRequest{Prompt: "slow render"})

	var statusErr *flux.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusRequestTimeout, statusErr.Code)
	assert.Equal(t, 3, fs.polls)
}

func TestGenerateImageValidation(t *testing.T) {
	tests := []struct {
		name string
		req  api.GenerateImageRequest
	}{
		{"missing prompt", api.GenerateImageRequest{}},
		{"unknown model", api.GenerateImageRequest{Prompt: "p", Model: "dall-e-3"}},
		{"width too small", api.GenerateImageRequest{Prompt: "p", Width: 32}},
		{"height too large", api.GenerateImageRequest{Prompt: "p", Height: 4096}},
		{"bad output format", api.GenerateImageRequest{Prompt: "p", OutputFormat: "webp"}},
		{"safety tolerance too high", api.GenerateImageRequest{Prompt: "p", SafetyTolerance: 9}},
	}

	fs := &fluxServer{taskID: "59a4f2c1-6c4b-47f0-9f1e-30b06f9adf05", statuses: []string{"Ready"}}
	gen, _ := setupGenerator(t, fs, 10)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gen.Generate(context.Background(), tt.req)
			assert.True(t, IsInvalidRequest(err), "expected validation error, got %v", err)
		})
	}

	// Validation failures must never reach the provider.
	assert.Zero(t, fs.polls)
}

func TestGenerateImageDefaults(t *testing.T) {
	req := api.GenerateImageRequest{Prompt: "p"}
	applyDefaults(&req)

	assert.Equal(t, flux.ModelFluxPro11, req.Model)
	assert.Equal(t, 512, req.Width)
	assert.Equal(t, 512, req.Height)
	assert.Equal(t, "jpeg", req.OutputFormat)
	assert.Equal(t, 2, req.SafetyTolerance)
	assert.NoError(t, validateRequest(req))
}

func TestGenerateImagePngFilename(t *testing.T) {
	fs := &fluxServer{
		taskID:     "8c1f06ab-52c7-4fd2-b1d8-6e45cf9b20c3",
		statuses:   []string{"Ready"},
		imageBytes: []byte("png bytes"),
	}
	gen, _ := setupGenerator(t, fs, 10)

	result, err := gen.Generate(context.Background(), api.GenerateImageRequest{
		Prompt:       "p",
		OutputFormat: "png",
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("http://localhost:8000/uploads/%s.png", fs.taskID), result.Url)
}
