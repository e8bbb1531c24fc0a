package summarizer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName = "Yu Gothic"
	fontSize = 11
)

var reBold = regexp.MustCompile(`\*\*(.+?)\*\*`)

// renderDocx writes the detail memo as a styled docx document and returns its bytes.
// godocx only saves to a path, so the document goes through a temp dir.
func renderDocx(d Detail, transcript string) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, err
	}

	addStyledRun(doc.AddParagraph(""), "診察メモ（詳細）", true, headingSize(1))

	addHeading(doc, "きょうの要点")
	addBullets(doc, d.SummaryTop3)

	if overview := strings.TrimSpace(d.Overview); overview != "" {
		addHeading(doc, "概要")
		for _, line := range strings.Split(overview, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				addRichText(doc.AddParagraph(""), line)
			}
		}
	}

	sections := []struct {
		title string
		items []string
	}{
		{"決まったこと", d.Decisions},
		{"あなたがやること", d.TodosUntilNext},
		{"こんな時は連絡/受診", d.RedFlags},
		{"次回ききたいこと", d.AskNextTime},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		addHeading(doc, s.title)
		addBullets(doc, s.items)
	}

	if len(d.TermsPlain) > 0 {
		addHeading(doc, "やさしい言い換え")
		for _, t := range d.TermsPlain {
			line := "• **" + t.Term + "**：" + t.Easy
			if t.Note != "" {
				line += "（" + t.Note + "）"
			}
			addRichText(doc.AddParagraph(""), line)
		}
	}

	for _, b := range d.TopicBlocks {
		addHeading(doc, b.Title)
		addBullets(doc, b.Bullets)
	}

	if len(d.Timeline) > 0 {
		addHeading(doc, "予定表")
		for _, t := range d.Timeline {
			line := "• " + t.When + "：" + t.What
			if t.Note != "" {
				line += "（" + t.Note + "）"
			}
			addRichText(doc.AddParagraph(""), line)
		}
	}

	addHeading(doc, "文字起こし（全文）")
	for _, line := range strings.Split(transcript, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			doc.AddParagraph("").AddText(line).Font(fontName).Size(fontSize).Color("000000")
		}
	}

	dir, err := os.MkdirTemp("", "carenote-docx-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "detail.docx")
	if err := doc.SaveTo(out); err != nil {
		return nil, fmt.Errorf("save docx: %w", err)
	}
	return os.ReadFile(out)
}

func addHeading(doc *docx.RootDoc, title string) {
	addStyledRun(doc.AddParagraph(""), title, true, headingSize(2))
}

func addBullets(doc *docx.RootDoc, items []string) {
	for _, it := range items {
		if it == "" {
			continue
		}
		addRichText(doc.AddParagraph(""), "• "+it)
	}
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 14
	default:
		return fontSize
	}
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	text = cleanMarkdownInline(text)
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	for i, part := range parts {
		if part != "" {
			clean := cleanMarkdownInline(part)
			p.AddText(clean).Font(fontName).Size(fontSize).Color("000000")
		}
		if i < len(matches) {
			clean := cleanMarkdownInline(matches[i][1])
			p.AddText(clean).Font(fontName).Size(fontSize).Color("000000").Bold(true)
		}
	}
}

func cleanMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}
