package generation

import "strings"

// Tones supported for draft content. The tone selects the register of the
// generated writing; anything unrecognized falls back to DefaultTone.
const (
	ToneArticle  = "article"
	ToneTutorial = "tutorial"
	ToneAcademic = "academic"
	ToneCasual   = "casual"

	DefaultTone = ToneArticle
)

var knownTones = map[string]bool{
	ToneArticle:  true,
	ToneTutorial: true,
	ToneAcademic: true,
	ToneCasual:   true,
}

const draftStyle = "clear, direct prose with concrete examples; avoid filler phrases and marketing language"

const draftFormat = "a rich-text document made of headings, paragraphs, code blocks, lists, and tables"

const draftSystemTemplate = `You are a writing assistant for a blog platform.
Write a draft in the voice of a {{TONE}} author.
Style: {{STYLE}}.
Output format: {{FORMAT}}.
Structure the draft with a single level-2 heading for the title, followed by
the body. Use code blocks only for actual code, with the correct language
identifier. Keep every textAlign attribute set to "left".`

// SystemPrompt builds the system instruction for a draft request by filling
// the template placeholders.
func SystemPrompt(tone string) string {
	if !knownTones[tone] {
		tone = DefaultTone
	}

	prompt := draftSystemTemplate
	prompt = strings.ReplaceAll(prompt, "{{TONE}}", tone)
	prompt = strings.ReplaceAll(prompt, "{{STYLE}}", draftStyle)
	prompt = strings.ReplaceAll(prompt, "{{FORMAT}}", draftFormat)
	return prompt
}
