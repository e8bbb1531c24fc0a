package summarizer

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const stringArray = `{"type": "array", "items": {"type": "string"}}`

var summarySchema = jsonschema.MustCompileString("summary.json", `{
	"type": "object",
	"required": ["summary_top3", "decisions", "todos_until_next", "red_flags", "ask_next_time", "terms_plain"],
	"properties": {
		"summary_top3": `+stringArray+`,
		"decisions": `+stringArray+`,
		"todos_until_next": `+stringArray+`,
		"red_flags": `+stringArray+`,
		"ask_next_time": `+stringArray+`,
		"terms_plain": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["term", "easy"],
				"properties": {
					"term": {"type": "string"},
					"easy": {"type": "string"},
					"note": {"type": "string"}
				}
			}
		}
	}
}`)

var detailSchema = jsonschema.MustCompileString("detail.json", `{
	"type": "object",
	"required": ["summary", "summary_top3"],
	"properties": {
		"summary": {"type": "string"},
		"summary_top3": `+stringArray+`,
		"topic_blocks": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string"},
					"bullets": `+stringArray+`
				}
			}
		},
		"timeline": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"when": {"type": "string"},
					"what": {"type": "string"},
					"note": {"type": "string"}
				}
			}
		}
	}
}`)

// checkShape reports how the decoded model output deviates from sch.
// Deviations are repaired by coercion, so callers only log the result.
func checkShape(sch *jsonschema.Schema, doc map[string]any) error {
	if err := sch.Validate(any(doc)); err != nil {
		return fmt.Errorf("response does not match %s: %w", sch.Location, err)
	}
	return nil
}
