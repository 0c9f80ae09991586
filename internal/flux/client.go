package flux

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://api.bfl.ml/v1"

// Supported provider model identifiers.
const (
	ModelFluxPro11      = "flux-pro-1.1"
	ModelFluxPro        = "flux-pro"
	ModelFluxDev        = "flux-dev"
	ModelFluxPro11Ultra = "flux-pro-1.1-ultra"
)

// Status is the closed set of task states the provider reports. Raw status
// strings are decoded into this enum at the client boundary; anything outside
// the set is rejected as an UnexpectedStatusError rather than passed through.
type Status string

const (
	StatusPending          Status = "Pending"
	StatusReady            Status = "Ready"
	StatusFailed           Status = "Error"
	StatusTaskNotFound     Status = "Task not found"
	StatusRequestModerated Status = "Request Moderated"
	StatusContentModerated Status = "Content Moderated"
)

var knownStatuses = map[Status]bool{
	StatusPending:          true,
	StatusReady:            true,
	StatusFailed:           true,
	StatusTaskNotFound:     true,
	StatusRequestModerated: true,
	StatusContentModerated: true,
}

type UnexpectedStatusError struct {
	Status string
	Body   string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected image generation status %q: %s", e.Status, e.Body)
}

type SubmitRequest struct {
	Prompt           string `json:"prompt"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	PromptUpsampling bool   `json:"prompt_upsampling"`
	Seed             *int   `json:"seed,omitempty"`
	SafetyTolerance  int    `json:"safety_tolerance"`
	OutputFormat     string `json:"output_format"`
}

type PollResult struct {
	Status    Status
	SampleURL string
	Raw       json.RawMessage
}

// Client is a thin wrapper over the provider's HTTP API. It submits jobs and
// fetches their status; retry and timing decisions belong to the Poller.
type Client struct {
	client *resty.Client
	apiKey string
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		client: resty.New().SetBaseURL(baseURL),
		apiKey: apiKey,
	}
}

type submitResponse struct {
	Id string `json:"id"`
}

// Submit starts a generation task on the model-specific endpoint and returns
// the provider-assigned task id.
func (c *Client) Submit(ctx context.Context, model string, req SubmitRequest) (string, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-key", c.apiKey).
		SetBody(req).
		Post("/" + model)
	if err != nil {
		return "", fmt.Errorf("image generation submission failed: %w", err)
	}

	// Parse the body directly; the provider is not trusted to label its
	// responses with a JSON content type.
	var parsed submitResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return "", fmt.Errorf("failed to start image generation: %s", res.String())
	}

	if !res.IsSuccess() || parsed.Id == "" {
		return "", fmt.Errorf("failed to start image generation: %s", res.String())
	}

	return parsed.Id, nil
}

type pollResponse struct {
	Status string `json:"status"`
	Result struct {
		Sample string `json:"sample"`
	} `json:"result"`
}

// GetResult fetches the current state of a task. One HTTP call, no retries.
func (c *Client) GetResult(ctx context.Context, taskID string) (*PollResult, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("id", taskID).
		Get("/get_result")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch result for task %s: %w", taskID, err)
	}

	var parsed pollResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse result for task %s: %w", taskID, err)
	}

	status := Status(parsed.Status)
	if !knownStatuses[status] {
		return nil, &UnexpectedStatusError{Status: parsed.Status, Body: res.String()}
	}

	return &PollResult{
		Status:    status,
		SampleURL: parsed.Result.Sample,
		Raw:       json.RawMessage(res.Body()),
	}, nil
}

// Download fetches the generated asset from the provider-supplied URL and
// returns the raw bytes with the reported content type.
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	res, err := resty.New().R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image from %s: %w", url, err)
	}
	if !res.IsSuccess() {
		return nil, "", fmt.Errorf("failed to download image from %s: status %d", url, res.StatusCode())
	}

	contentType := res.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	return res.Body(), contentType, nil
}
