package generation

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"blog-backend/internal/content"

	openai "github.com/openai/openai-go"
)

const (
	DefaultDraftModel = "gpt-4o-2024-08-06"
	draftMaxTokens    = 2000
	draftTemperature  = 0.5
	draftSchemaName   = "post_content"
	draftSchemaDesc   = "A structured rich-text blog draft"
)

// DraftGenerator streams structured draft content from the language model.
// The completion is constrained to the document schema and validated
// incrementally; the caller sees only complete, schema-valid nodes.
type DraftGenerator struct {
	client openai.Client
	model  string
}

func NewDraftGenerator(client openai.Client, model string) *DraftGenerator {
	if model == "" {
		model = DefaultDraftModel
	}
	return &DraftGenerator{client: client, model: model}
}

// Draft runs a single streaming completion for the given prompt and feeds
// every event into the validator. Provider failures terminate the stream
// with an error line on the wire; they are not retried.
func (g *DraftGenerator) Draft(ctx context.Context, prompt, tone string, validator *content.StreamValidator) error {
	params := openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(tone)),
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(draftMaxTokens),
		Temperature:         openai.Float(draftTemperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        draftSchemaName,
					Description: openai.String(draftSchemaDesc),
					Schema:      content.JSONSchema(),
					Strict:      openai.Bool(true),
				},
			},
		},
	}

	stream := g.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var acc strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		acc.WriteString(chunk.Choices[0].Delta.Content)
		snapshot := completeJSON(acc.String())
		if err := validator.Consume(content.Event{Delta: json.RawMessage(snapshot)}); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil {
		slog.Error("draft content stream failed", "model", g.model, "error", err)
		return validator.Consume(content.Event{Err: err.Error()})
	}

	return validator.Finish(json.RawMessage(acc.String()))
}

// completeJSON closes any brackets and strings left open by a truncated JSON
// prefix so the accumulated text parses as a snapshot of the final document.
// The result is best-effort; a prefix cut inside a literal or right after a
// comma still fails to parse, which the validator treats as "not yet".
func completeJSON(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
