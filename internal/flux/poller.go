package flux

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultPollMaxAttempts = 30
)

// StatusError is a terminal polling outcome that maps directly to an HTTP
// response. These are expected results of the state machine, not transport
// failures, so they travel as values rather than panics.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// ErrTimeout is returned when the attempt budget runs out while the task is
// still pending.
var ErrTimeout = &StatusError{Code: http.StatusRequestTimeout, Message: "Timeout waiting for image generation"}

var statusFailures = map[Status]*StatusError{
	StatusFailed:           {Code: http.StatusInternalServerError, Message: "Image generation failed"},
	StatusTaskNotFound:     {Code: http.StatusNotFound, Message: "Task not found"},
	StatusRequestModerated: {Code: http.StatusBadRequest, Message: "Request was moderated due to content policy"},
	StatusContentModerated: {Code: http.StatusBadRequest, Message: "Generated content was moderated due to content policy"},
}

// Poller drives a submitted task to a terminal state. Each round trips one
// GetResult call; Pending costs one attempt and one interval of sleep, every
// terminal status exits immediately. The worst-case wait is therefore
// maxAttempts * interval.
type Poller struct {
	client      *Client
	interval    time.Duration
	maxAttempts int
}

func NewPoller(client *Client, interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollMaxAttempts
	}
	return &Poller{client: client, interval: interval, maxAttempts: maxAttempts}
}

// Poll blocks until the task reaches a terminal state or the attempt budget
// is exhausted. The first Ready observation wins and is returned as-is.
// Terminal failure statuses come back as *StatusError; an unrecognized
// provider status surfaces as the client's UnexpectedStatusError.
func (p *Poller) Poll(ctx context.Context, taskID string) (*PollResult, error) {
	attempt := 0
	for attempt < p.maxAttempts {
		result, err := p.client.GetResult(ctx, taskID)
		if err != nil {
			return nil, err
		}

		slog.Info("image generation status", "task_id", taskID, "status", result.Status, "attempt", attempt)

		switch result.Status {
		case StatusReady:
			return result, nil
		case StatusPending:
			attempt++
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.interval):
			}
		default:
			return nil, statusFailures[result.Status]
		}
	}

	return nil, ErrTimeout
}
