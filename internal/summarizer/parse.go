package summarizer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/nguyentantai21042004/carenote/internal/apperr"
)

var (
	reFenceOpen  = regexp.MustCompile("(?i)^```(?:json)?")
	reFenceClose = regexp.MustCompile("```$")
)

// ParseLoose decodes a JSON object from model output that may be wrapped in
// code fences or surrounded by prose.
func ParseLoose(text string) (map[string]any, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil, apperr.Parse(fmt.Errorf("empty response"))
	}
	t = reFenceOpen.ReplaceAllString(t, "")
	t = strings.TrimSpace(reFenceClose.ReplaceAllString(t, ""))

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		t = t[start : end+1]
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(t), &out); err != nil {
		return nil, apperr.Parse(err)
	}
	if out == nil {
		return nil, apperr.Parse(fmt.Errorf("response is not an object"))
	}
	return out, nil
}

// decodeSummary coerces every list field; missing or mistyped fields become empty lists
func decodeSummary(m map[string]any) Summary {
	return Summary{
		SummaryTop3:    stringList(m["summary_top3"]),
		Decisions:      stringList(m["decisions"]),
		TodosUntilNext: stringList(m["todos_until_next"]),
		RedFlags:       stringList(m["red_flags"]),
		AskNextTime:    stringList(m["ask_next_time"]),
		TermsPlain:     termList(m["terms_plain"]),
	}
}

func decodeDetail(m map[string]any) Detail {
	overview, _ := m["summary"].(string)
	return Detail{
		Overview:    overview,
		Summary:     decodeSummary(m),
		TopicBlocks: topicBlocks(m["topic_blocks"]),
		Timeline:    timeline(m["timeline"]),
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func termList(v any) []Term {
	items, ok := v.([]any)
	if !ok {
		return []Term{}
	}
	out := make([]Term, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Term{
			Term: str(obj["term"]),
			Easy: str(obj["easy"]),
			Note: str(obj["note"]),
		})
	}
	return out
}

func topicBlocks(v any) []TopicBlock {
	items, ok := v.([]any)
	if !ok {
		return []TopicBlock{}
	}
	out := make([]TopicBlock, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, TopicBlock{
			Title:   str(obj["title"]),
			Bullets: stringList(obj["bullets"]),
		})
	}
	return out
}

func timeline(v any) []TimelineEntry {
	items, ok := v.([]any)
	if !ok {
		return []TimelineEntry{}
	}
	out := make([]TimelineEntry, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, TimelineEntry{
			When: str(obj["when"]),
			What: str(obj["what"]),
			Note: str(obj["note"]),
		})
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
