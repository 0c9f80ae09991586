package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	backend "blog-backend/internal/api"
	"blog-backend/internal/flux"
	"blog-backend/internal/generation"
	"blog-backend/internal/storage"
	"blog-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const fluxTaskID = "3b9f6a84-1c26-4f0b-ae6d-57b2f1c90d42"

func fakeFluxServer(t *testing.T, statuses ...string) *httptest.Server {
	t.Helper()

	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /{model}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": fluxTaskID})
	})
	mux.HandleFunc("GET /get_result", func(w http.ResponseWriter, r *http.Request) {
		status := statuses[min(polls, len(statuses)-1)]
		polls++

		resp := map[string]any{"status": status}
		if status == "Ready" {
			resp["result"] = map[string]string{"sample": "http://" + r.Host + "/sample"}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("GET /sample", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("image"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func fakeDraftServer(t *testing.T, doc string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunk := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion.chunk",
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]string{"content": doc}},
			},
		}
		data, err := json.Marshal(chunk)
		require.NoError(t, err)
		fmt.Fprintf(w, "data: %s\n\n", data)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)
	return server
}

func aiRouter(t *testing.T, db *gorm.DB, fluxURL, openaiURL string) chi.Router {
	t.Helper()

	store, err := storage.NewLocalMediaStore(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)

	client := flux.NewClient(fluxURL, "test-key")
	poller := flux.NewPoller(client, time.Millisecond, 5)
	images := generation.NewImageGenerator(client, poller, store, db)

	drafts := generation.NewDraftGenerator(
		openai.NewClient(option.WithAPIKey("test"), option.WithBaseURL(openaiURL)), "")

	router := chi.NewRouter()
	backend.NewAIService(images, drafts, authMiddleware(db)).AddRoutes(router)
	return router
}

func TestGenerateImageEndpoint(t *testing.T) {
	db := createDB(t)
	fluxServer := fakeFluxServer(t, "Pending", "Ready")
	router := aiRouter(t, db, fluxServer.URL, "http://unused")

	rec := doJSON(t, router, http.MethodPost, "/ai/public/generate-image", "", api.GenerateImageRequest{
		Prompt: "a lighthouse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodeJSON[api.ImageResult](t, rec)
	assert.Equal(t, fluxTaskID, result.Id.String())
	assert.Equal(t, "a lighthouse", result.Prompt)
	assert.Equal(t, "http://localhost:8000/uploads/"+fluxTaskID+".jpeg", result.Url)
}

func TestGenerateImageEndpointErrors(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		req      api.GenerateImageRequest
		wantCode int
		wantBody string
	}{
		{"missing prompt", []string{"Ready"}, api.GenerateImageRequest{}, http.StatusBadRequest, "prompt is required"},
		{"moderated", []string{"Request Moderated"}, api.GenerateImageRequest{Prompt: "p"}, http.StatusBadRequest, "Request was moderated due to content policy"},
		{"task missing", []string{"Task not found"}, api.GenerateImageRequest{Prompt: "p"}, http.StatusNotFound, "Task not found"},
		{"provider error", []string{"Error"}, api.GenerateImageRequest{Prompt: "p"}, http.StatusInternalServerError, "Image generation failed"},
		{"timeout", []string{"Pending"}, api.GenerateImageRequest{Prompt: "p"}, http.StatusRequestTimeout, "Timeout waiting for image generation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := createDB(t)
			fluxServer := fakeFluxServer(t, tt.statuses...)
			router := aiRouter(t, db, fluxServer.URL, "http://unused")

			rec := doJSON(t, router, http.MethodPost, "/ai/public/generate-image", "", tt.req)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestPrivateRoutesRequireAuth(t *testing.T) {
	db := createDB(t)
	fluxServer := fakeFluxServer(t, "Ready")
	router := aiRouter(t, db, fluxServer.URL, "http://unused")

	rec := doJSON(t, router, http.MethodPost, "/ai/private/generate-image", "", api.GenerateImageRequest{Prompt: "p"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user := testUser(t, db, false)
	rec = doJSON(t, router, http.MethodPost, "/ai/private/generate-image", accessToken(t, user), api.GenerateImageRequest{Prompt: "p"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGenerateDraftContentEndpoint(t *testing.T) {
	doc := `{"type": "doc", "content": [` +
		`{"type": "heading", "attrs": {"textAlign": "left", "level": 2}, "content": [{"type": "text", "text": "Title"}]}, ` +
		`{"type": "paragraph", "attrs": {"textAlign": "left"}, "content": [{"type": "text", "text": "Body."}]}]}`

	db := createDB(t)
	draftServer := fakeDraftServer(t, doc)
	router := aiRouter(t, db, "http://unused", draftServer.URL)

	rec := doJSON(t, router, http.MethodPost, "/ai/public/generate-draft-content?tone=tutorial", "", api.DraftContentRequest{
		Prompt: "write about lighthouses",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "v1", rec.Header().Get("X-Content-Stream"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "heading", first["type"])
	assert.JSONEq(t, `{"done": true}`, lines[2])
}

func TestDraftStreamOutlivesRequestTimeout(t *testing.T) {
	doc := `{"type": "doc", "content": [` +
		`{"type": "paragraph", "attrs": {"textAlign": "left"}, "content": [{"type": "text", "text": "Slow."}]}]}`

	db := createDB(t)

	// A provider that answers slower than the standard request timeout.
	draftServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(60 * time.Millisecond)
		w.Header().Set("Content-Type", "text/event-stream")
		chunk := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion.chunk",
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]string{"content": doc}},
			},
		}
		data, err := json.Marshal(chunk)
		require.NoError(t, err)
		fmt.Fprintf(w, "data: %s\n\n", data)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(draftServer.Close)

	store, err := storage.NewLocalMediaStore(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)

	client := flux.NewClient("http://unused", "test-key")
	poller := flux.NewPoller(client, time.Millisecond, 5)
	images := generation.NewImageGenerator(client, poller, store, db)
	drafts := generation.NewDraftGenerator(
		openai.NewClient(option.WithAPIKey("test"), option.WithBaseURL(draftServer.URL)), "")

	// Mounted the way the server wires it: the request timeout only covers
	// the non-streaming routes.
	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(20 * time.Millisecond))
		backend.NewPostService(db, authMiddleware(db)).AddRoutes(r)
	})
	backend.NewAIService(images, drafts, authMiddleware(db)).AddRoutes(router)

	rec := doJSON(t, router, http.MethodPost, "/ai/public/generate-draft-content", "", api.DraftContentRequest{
		Prompt: "write slowly",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"done": true}`, lines[1])
}

func TestGenerateDraftContentRequiresPrompt(t *testing.T) {
	db := createDB(t)
	router := aiRouter(t, db, "http://unused", "http://unused")

	rec := doJSON(t, router, http.MethodPost, "/ai/public/generate-draft-content", "", api.DraftContentRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "prompt is required")
}
