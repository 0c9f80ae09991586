package content

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Event is one step of an in-progress generation. Exactly one field is
// meaningful: Delta carries the latest full document snapshot, Done marks a
// clean end of stream, Err carries a provider-side failure message.
type Event struct {
	Delta json.RawMessage
	Done  bool
	Err   string
}

// StreamValidator consumes document snapshots as they grow and relays each
// top-level node downstream as one JSON line, as soon as that node is
// complete. A node still being generated is held back until a later snapshot
// finishes it; a snapshot that does not parse or validate yet is skipped
// without emitting anything. The stream always ends with exactly one
// {"done": true} or {"error": ...} line.
type StreamValidator struct {
	w       io.Writer
	flusher http.Flusher
	emitted int
	closed  bool
}

func NewStreamValidator(w io.Writer) *StreamValidator {
	v := &StreamValidator{w: w}
	if f, ok := w.(http.Flusher); ok {
		v.flusher = f
	}
	return v
}

// Consume applies one event. After a Done or Err event the stream is closed
// and further events are ignored.
func (v *StreamValidator) Consume(event Event) error {
	if v.closed {
		return nil
	}

	switch {
	case event.Err != "":
		v.closed = true
		return v.writeLine(map[string]any{"error": event.Err})
	case event.Done:
		v.closed = true
		return v.writeLine(map[string]any{"done": true})
	default:
		return v.consumeDelta(event.Delta)
	}
}

// Finish validates the final snapshot, emits any nodes still held back, and
// terminates the stream. A document that fails full validation produces an
// error line instead.
func (v *StreamValidator) Finish(final json.RawMessage) error {
	if v.closed {
		return nil
	}
	v.closed = true

	var doc Doc
	if err := json.Unmarshal(final, &doc); err != nil {
		return v.writeLine(map[string]any{"error": fmt.Sprintf("generated content is not valid JSON: %v", err)})
	}
	if err := doc.Validate(false); err != nil {
		return v.writeLine(map[string]any{"error": err.Error()})
	}

	for _, node := range doc.Content[min(v.emitted, len(doc.Content)):] {
		if err := v.writeLine(node); err != nil {
			return err
		}
		v.emitted++
	}

	return v.writeLine(map[string]any{"done": true})
}

func (v *StreamValidator) consumeDelta(snapshot json.RawMessage) error {
	var doc Doc
	if err := json.Unmarshal(snapshot, &doc); err != nil {
		// The snapshot cuts off mid-node; a later one will complete it.
		return nil
	}
	if err := doc.Validate(true); err != nil {
		return nil
	}

	// Only nodes before the last are final. The last node may still be
	// growing even when it already validates, so it is held until the next
	// node appears or the stream ends.
	for v.emitted < len(doc.Content)-1 {
		if err := v.writeLine(doc.Content[v.emitted]); err != nil {
			return err
		}
		v.emitted++
	}

	return nil
}

func (v *StreamValidator) writeLine(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode stream line: %w", err)
	}

	if _, err := v.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write stream line: %w", err)
	}

	if v.flusher != nil {
		v.flusher.Flush()
	}

	return nil
}
