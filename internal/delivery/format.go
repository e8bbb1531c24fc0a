package delivery

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nguyentantai21042004/carenote/internal/summarizer"
)

const (
	// MaxMessageRunes is the cap applied to the whole pushed text
	MaxMessageRunes = 4999
	itemRunes       = 40
	termRunes       = 24
	header          = "■診察メモ"
)

// ShortNotice is pushed instead of a memo when the transcript is too short
const ShortNotice = header + "\n（短い内容のためメモは作成しませんでした）"

var reLines = regexp.MustCompile(`\n+`)

// Memo is the input to BuildMessage
type Memo struct {
	Summary      summarizer.Summary
	Overview     string
	DetailURL    string
	DetailTTLDay int
}

// BuildMessage renders the single push message for a summary
func BuildMessage(m Memo) string {
	s := m.Summary

	top := capItems(s.SummaryTop3, 3, itemRunes)
	if len(top) == 0 && strings.TrimSpace(m.Overview) != "" {
		top = capItems(reLines.Split(strings.TrimSpace(m.Overview), -1), 3, itemRunes)
	}

	parts := []string{header, "🧾 きょうの要点\n" + bullets(top)}
	sections := []struct {
		title string
		items []string
	}{
		{"【決まったこと】", capItems(s.Decisions, 3, itemRunes)},
		{"✅ あなたがやること", capItems(s.TodosUntilNext, 5, itemRunes)},
		{"🚩 こんな時は連絡/受診", capItems(s.RedFlags, 3, itemRunes)},
	}
	for _, sec := range sections {
		if len(sec.items) > 0 {
			parts = append(parts, "\n"+sec.title+"\n"+bullets(sec.items))
		}
	}

	if terms := capTerms(s.TermsPlain, 3); len(terms) > 0 {
		lines := make([]string, len(terms))
		for i, t := range terms {
			lines[i] = "・ " + t.Term + "：" + t.Easy
		}
		parts = append(parts, "\n🔎 やさしい言い換え\n"+strings.Join(lines, "\n"))
	}
	if ask := capItems(s.AskNextTime, 3, itemRunes); len(ask) > 0 {
		parts = append(parts, "\n❓ 次回ききたいこと\n"+bullets(ask))
	}

	msg := strings.Join(parts, "\n")
	if m.DetailURL != "" {
		msg += fmt.Sprintf("\n\n🔗 詳細を見る（%d日有効）\n%s", m.DetailTTLDay, m.DetailURL)
	}
	return truncateRunes(msg, MaxMessageRunes)
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "・ " + it
	}
	return strings.Join(lines, "\n")
}

func capItems(items []string, n, runes int) []string {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = shorten(it, runes)
	}
	return out
}

func capTerms(terms []summarizer.Term, n int) []summarizer.Term {
	if len(terms) > n {
		terms = terms[:n]
	}
	out := make([]summarizer.Term, len(terms))
	for i, t := range terms {
		out[i] = summarizer.Term{Term: shorten(t.Term, termRunes), Easy: shorten(t.Easy, itemRunes)}
	}
	return out
}

// shorten trims s and cuts it to n runes, the last being an ellipsis
func shorten(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
