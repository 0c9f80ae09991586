package flux

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	var gotKey, gotPath string
	var gotBody SubmitRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-key")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "task-42"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	taskID, err := client.Submit(context.Background(), ModelFluxPro11, SubmitRequest{
		Prompt: "a red door",
		Width:  512,
		Height: 512,
	})
	require.NoError(t, err)

	assert.Equal(t, "task-42", taskID)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "/flux-pro-1.1", gotPath)
	assert.Equal(t, "a red door", gotBody.Prompt)
}

func TestSubmitWithoutContentTypeHeader(t *testing.T) {
	// The provider's response is decoded even when it carries no JSON
	// content type.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte(`{"id": "task-42"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	taskID, err := client.Submit(context.Background(), ModelFluxPro11, SubmitRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "task-42", taskID)
}

func TestSubmitMissingTaskID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "invalid api key"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad")
	_, err := client.Submit(context.Background(), ModelFluxPro11, SubmitRequest{Prompt: "p"})
	assert.ErrorContains(t, err, "failed to start image generation")
}

func TestGetResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_result", r.URL.Path)
		assert.Equal(t, "task-42", r.URL.Query().Get("id"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "Ready",
			"result": map[string]string{"sample": "https://cdn.example.com/img.jpeg"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	result, err := client.GetResult(context.Background(), "task-42")
	require.NoError(t, err)

	assert.Equal(t, StatusReady, result.Status)
	assert.Equal(t, "https://cdn.example.com/img.jpeg", result.SampleURL)
}

func TestGetResultFailedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "Error"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	result, err := client.GetResult(context.Background(), "task-42")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
}

func TestGetResultUnknownStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "Queued"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	_, err := client.GetResult(context.Background(), "task-42")

	var unexpected *UnexpectedStatusError
	require.ErrorAs(t, err, &unexpected)
	assert.Equal(t, "Queued", unexpected.Status)
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("image bytes"))
	}))
	defer server.Close()

	data, contentType, err := NewClient("", "").Download(context.Background(), server.URL+"/img.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestDownloadDefaultsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("bytes"))
	}))
	defer server.Close()

	_, contentType, err := NewClient("", "").Download(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, _, err := NewClient("", "").Download(context.Background(), server.URL)
	assert.ErrorContains(t, err, "status 404")
}
