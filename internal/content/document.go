// Package content models the Tiptap-style document tree produced by AI
// content generation and validates it incrementally as it streams in.
package content

import (
	"encoding/json"
	"fmt"
)

// Node type discriminators. Every node in the tree carries one of these in
// its "type" field; anything else is rejected outright.
const (
	TypeDoc         = "doc"
	TypeHeading     = "heading"
	TypeParagraph   = "paragraph"
	TypeCodeBlock   = "codeBlock"
	TypeOrderedList = "orderedList"
	TypeBulletList  = "bulletList"
	TypeListItem    = "listItem"
	TypeTable       = "table"
	TypeTableRow    = "tableRow"
	TypeTableCell   = "tableCell"
	TypeText        = "text"
)

// Mark type discriminators.
const (
	MarkBold      = "bold"
	MarkItalic    = "italic"
	MarkUnderline = "underline"
	MarkStrike    = "strike"
	MarkSubscript = "subscript"
	MarkHighlight = "highlight"
	MarkLink      = "link"
)

// CodeLanguages is the closed set of code block language identifiers.
var CodeLanguages = map[string]bool{
	"python": true, "javascript": true, "typescript": true, "java": true,
	"c": true, "cpp": true, "ruby": true, "go": true, "rust": true,
	"html": true, "css": true, "sql": true, "shell": true, "markdown": true,
	"json": true, "yaml": true, "xml": true,
}

type UnknownTypeError struct {
	Kind string // "node" or "mark"
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown %s type %q", e.Kind, e.Type)
}

type ValidationError struct {
	Path string
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid document: %s: %s", e.Path, e.Msg)
}

// Node is one block-level element of a document. Variants are tagged on the
// "type" field; decoding goes through UnmarshalNode so an unknown tag fails
// instead of falling through silently.
type Node interface {
	NodeType() string

	// Validate checks the node against the schema. In partial mode fields
	// that may simply not have streamed in yet (empty text, zero level,
	// missing attrs) are tolerated; values that could never become valid
	// (unknown types, out-of-range levels, unlisted languages) fail in
	// both modes.
	Validate(partial bool) error
}

type Doc struct {
	Type    string `json:"type"`
	Content []Node `json:"content"`
}

type MarkAttrs struct {
	Color  string `json:"color,omitempty"`
	Href   string `json:"href,omitempty"`
	Target string `json:"target,omitempty"`
}

type Mark struct {
	Type  string     `json:"type"`
	Attrs *MarkAttrs `json:"attrs,omitempty"`
}

type Text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Marks []Mark `json:"marks,omitempty"`
}

type HeadingAttrs struct {
	TextAlign string `json:"textAlign"`
	Level     int    `json:"level"`
}

type Heading struct {
	Type    string       `json:"type"`
	Attrs   HeadingAttrs `json:"attrs"`
	Content []Text       `json:"content"`
}

type ParagraphAttrs struct {
	TextAlign string `json:"textAlign"`
}

type Paragraph struct {
	Type    string         `json:"type"`
	Attrs   ParagraphAttrs `json:"attrs"`
	Content []Text         `json:"content"`
}

type CodeBlockAttrs struct {
	Language string `json:"language"`
}

type CodeBlock struct {
	Type    string         `json:"type"`
	Attrs   CodeBlockAttrs `json:"attrs"`
	Content []Text         `json:"content"`
}

type ListItem struct {
	Type    string      `json:"type"`
	Content []Paragraph `json:"content"`
}

type OrderedList struct {
	Type    string     `json:"type"`
	Content []ListItem `json:"content"`
}

type BulletList struct {
	Type    string     `json:"type"`
	Content []ListItem `json:"content"`
}

type TableCell struct {
	Type    string      `json:"type"`
	Content []Paragraph `json:"content"`
}

type TableRow struct {
	Type    string      `json:"type"`
	Content []TableCell `json:"content"`
}

type Table struct {
	Type    string     `json:"type"`
	Content []TableRow `json:"content"`
}

// UnmarshalNode decodes one block-level node, dispatching on the "type"
// discriminator.
func UnmarshalNode(data []byte) (Node, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode node: %w", err)
	}

	var node Node
	switch env.Type {
	case TypeHeading:
		node = &Heading{}
	case TypeParagraph:
		node = &Paragraph{}
	case TypeCodeBlock:
		node = &CodeBlock{}
	case TypeOrderedList:
		node = &OrderedList{}
	case TypeBulletList:
		node = &BulletList{}
	case TypeTable:
		node = &Table{}
	default:
		return nil, &UnknownTypeError{Kind: "node", Type: env.Type}
	}

	if err := json.Unmarshal(data, node); err != nil {
		return nil, fmt.Errorf("failed to decode %s node: %w", env.Type, err)
	}

	return node, nil
}

func (d *Doc) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    string            `json:"type"`
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Type = raw.Type
	d.Content = d.Content[:0]
	for _, r := range raw.Content {
		node, err := UnmarshalNode(r)
		if err != nil {
			return err
		}
		d.Content = append(d.Content, node)
	}

	return nil
}

func (d *Doc) Validate(partial bool) error {
	if d.Type != TypeDoc && !(partial && d.Type == "") {
		return &UnknownTypeError{Kind: "node", Type: d.Type}
	}
	for i, node := range d.Content {
		// Only the final node of a partial snapshot may still be
		// incomplete; everything before it must validate fully.
		nodePartial := partial && i == len(d.Content)-1
		if err := node.Validate(nodePartial); err != nil {
			return err
		}
	}
	return nil
}

func (n *Heading) NodeType() string { return TypeHeading }

func (n *Heading) Validate(partial bool) error {
	if n.Attrs.Level < 0 || n.Attrs.Level > 6 {
		return &ValidationError{Path: "heading.attrs.level", Msg: fmt.Sprintf("level %d out of range 1-6", n.Attrs.Level)}
	}
	if !partial && n.Attrs.Level == 0 {
		return &ValidationError{Path: "heading.attrs.level", Msg: "level is required"}
	}
	if err := validateTextAlign(n.Attrs.TextAlign, partial, "heading"); err != nil {
		return err
	}
	return validateTextContent(n.Content, partial)
}

func (n *Paragraph) NodeType() string { return TypeParagraph }

func (n *Paragraph) Validate(partial bool) error {
	if err := validateTextAlign(n.Attrs.TextAlign, partial, "paragraph"); err != nil {
		return err
	}
	return validateTextContent(n.Content, partial)
}

func (n *CodeBlock) NodeType() string { return TypeCodeBlock }

func (n *CodeBlock) Validate(partial bool) error {
	if n.Attrs.Language == "" {
		if !partial {
			return &ValidationError{Path: "codeBlock.attrs.language", Msg: "language is required"}
		}
	} else if !CodeLanguages[n.Attrs.Language] {
		return &ValidationError{Path: "codeBlock.attrs.language", Msg: fmt.Sprintf("unsupported language %q", n.Attrs.Language)}
	}
	return validateTextContent(n.Content, partial)
}

func (n *OrderedList) NodeType() string { return TypeOrderedList }

func (n *OrderedList) Validate(partial bool) error {
	return validateListItems(n.Content, partial)
}

func (n *BulletList) NodeType() string { return TypeBulletList }

func (n *BulletList) Validate(partial bool) error {
	return validateListItems(n.Content, partial)
}

func (n *Table) NodeType() string { return TypeTable }

func (n *Table) Validate(partial bool) error {
	for i, row := range n.Content {
		rowPartial := partial && i == len(n.Content)-1
		if row.Type != TypeTableRow && !(rowPartial && row.Type == "") {
			return &UnknownTypeError{Kind: "node", Type: row.Type}
		}
		for j, cell := range row.Content {
			cellPartial := rowPartial && j == len(row.Content)-1
			if cell.Type != TypeTableCell && !(cellPartial && cell.Type == "") {
				return &UnknownTypeError{Kind: "node", Type: cell.Type}
			}
			for _, p := range cell.Content {
				if p.Type != TypeParagraph && !(cellPartial && p.Type == "") {
					return &UnknownTypeError{Kind: "node", Type: p.Type}
				}
				if err := p.Validate(cellPartial); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateListItems(items []ListItem, partial bool) error {
	for i, item := range items {
		itemPartial := partial && i == len(items)-1
		if item.Type != TypeListItem && !(itemPartial && item.Type == "") {
			return &UnknownTypeError{Kind: "node", Type: item.Type}
		}
		for _, p := range item.Content {
			if p.Type != TypeParagraph && !(itemPartial && p.Type == "") {
				return &UnknownTypeError{Kind: "node", Type: p.Type}
			}
			if err := p.Validate(itemPartial); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateTextContent(texts []Text, partial bool) error {
	for i, t := range texts {
		textPartial := partial && i == len(texts)-1
		if t.Type != TypeText && !(textPartial && t.Type == "") {
			return &UnknownTypeError{Kind: "node", Type: t.Type}
		}
		for _, m := range t.Marks {
			if err := m.Validate(textPartial); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateTextAlign(align string, partial bool, path string) error {
	switch align {
	case "left":
		return nil
	case "":
		if partial {
			return nil
		}
		return &ValidationError{Path: path + ".attrs.textAlign", Msg: "textAlign is required"}
	default:
		return &ValidationError{Path: path + ".attrs.textAlign", Msg: fmt.Sprintf("unsupported alignment %q", align)}
	}
}

func (m Mark) Validate(partial bool) error {
	switch m.Type {
	case MarkBold, MarkItalic, MarkUnderline, MarkStrike, MarkSubscript, MarkHighlight:
		return nil
	case MarkLink:
		if !partial && (m.Attrs == nil || m.Attrs.Href == "") {
			return &ValidationError{Path: "mark.link", Msg: "href is required"}
		}
		return nil
	case "":
		if partial {
			return nil
		}
		return &ValidationError{Path: "mark", Msg: "mark type is required"}
	default:
		return &UnknownTypeError{Kind: "mark", Type: m.Type}
	}
}
