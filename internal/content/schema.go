package content

// JSONSchema returns the schema sent to the language-model provider as a
// structured-output constraint. It mirrors the validation rules in this
// package: the same closed node set, language list, heading levels, and
// alignment literal.
func JSONSchema() map[string]any {
	languages := make([]string, 0, len(CodeLanguages))
	for lang := range CodeLanguages {
		languages = append(languages, lang)
	}

	textNode := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type", "text", "marks"},
		"properties": map[string]any{
			"type": map[string]any{"const": TypeText},
			"text": map[string]any{"type": "string"},
			"marks": map[string]any{
				"type":  "array",
				"items": map[string]any{"$ref": "#/$defs/mark"},
			},
		},
	}

	mark := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type"},
		"properties": map[string]any{
			"type": map[string]any{
				"enum": []string{MarkBold, MarkItalic, MarkUnderline, MarkStrike, MarkSubscript, MarkHighlight, MarkLink},
			},
			"attrs": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"color":  map[string]any{"type": "string"},
					"href":   map[string]any{"type": "string"},
					"target": map[string]any{"type": "string"},
				},
			},
		},
	}

	textContent := map[string]any{
		"type":  "array",
		"items": map[string]any{"$ref": "#/$defs/text"},
	}

	paragraph := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type", "attrs", "content"},
		"properties": map[string]any{
			"type": map[string]any{"const": TypeParagraph},
			"attrs": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"textAlign"},
				"properties": map[string]any{
					"textAlign": map[string]any{"const": "left"},
				},
			},
			"content": textContent,
		},
	}

	heading := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type", "attrs", "content"},
		"properties": map[string]any{
			"type": map[string]any{"const": TypeHeading},
			"attrs": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"textAlign", "level"},
				"properties": map[string]any{
					"textAlign": map[string]any{"const": "left"},
					"level":     map[string]any{"type": "integer", "minimum": 1, "maximum": 6},
				},
			},
			"content": textContent,
		},
	}

	codeBlock := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type", "attrs", "content"},
		"properties": map[string]any{
			"type": map[string]any{"const": TypeCodeBlock},
			"attrs": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"language"},
				"properties": map[string]any{
					"language": map[string]any{"enum": languages},
				},
			},
			"content": textContent,
		},
	}

	listItem := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type", "content"},
		"properties": map[string]any{
			"type": map[string]any{"const": TypeListItem},
			"content": map[string]any{
				"type":  "array",
				"items": map[string]any{"$ref": "#/$defs/paragraph"},
			},
		},
	}

	list := func(listType string) map[string]any {
		return map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"type", "content"},
			"properties": map[string]any{
				"type": map[string]any{"const": listType},
				"content": map[string]any{
					"type":  "array",
					"items": map[string]any{"$ref": "#/$defs/listItem"},
				},
			},
		}
	}

	tableCell := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type", "content"},
		"properties": map[string]any{
			"type": map[string]any{"const": TypeTableCell},
			"content": map[string]any{
				"type":  "array",
				"items": map[string]any{"$ref": "#/$defs/paragraph"},
			},
		},
	}

	tableRow := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type", "content"},
		"properties": map[string]any{
			"type": map[string]any{"const": TypeTableRow},
			"content": map[string]any{
				"type":  "array",
				"items": map[string]any{"$ref": "#/$defs/tableCell"},
			},
		},
	}

	table := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type", "content"},
		"properties": map[string]any{
			"type": map[string]any{"const": TypeTable},
			"content": map[string]any{
				"type":  "array",
				"items": map[string]any{"$ref": "#/$defs/tableRow"},
			},
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type", "content"},
		"properties": map[string]any{
			"type": map[string]any{"const": TypeDoc},
			"content": map[string]any{
				"type": "array",
				"items": map[string]any{
					"anyOf": []any{
						map[string]any{"$ref": "#/$defs/heading"},
						map[string]any{"$ref": "#/$defs/paragraph"},
						map[string]any{"$ref": "#/$defs/codeBlock"},
						map[string]any{"$ref": "#/$defs/bulletList"},
						map[string]any{"$ref": "#/$defs/orderedList"},
						map[string]any{"$ref": "#/$defs/table"},
					},
				},
			},
		},
		"$defs": map[string]any{
			"text":        textNode,
			"mark":        mark,
			"heading":     heading,
			"paragraph":   paragraph,
			"codeBlock":   codeBlock,
			"listItem":    listItem,
			"bulletList":  list(TypeBulletList),
			"orderedList": list(TypeOrderedList),
			"tableCell":   tableCell,
			"tableRow":    tableRow,
			"table":       table,
		},
	}
}
