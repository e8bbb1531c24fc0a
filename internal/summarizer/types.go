package summarizer

// Summary is the short structured summary delivered to the patient
type Summary struct {
	SummaryTop3    []string `json:"summary_top3"`
	Decisions      []string `json:"decisions"`
	TodosUntilNext []string `json:"todos_until_next"`
	RedFlags       []string `json:"red_flags"`
	AskNextTime    []string `json:"ask_next_time"`
	TermsPlain     []Term   `json:"terms_plain"`
}

// Term is a technical term with a plain-language rewording
type Term struct {
	Term string `json:"term"`
	Easy string `json:"easy"`
	Note string `json:"note,omitempty"`
}

// Detail is the long-form summary rendered into the detail page
type Detail struct {
	Overview string `json:"summary"`
	Summary
	TopicBlocks []TopicBlock    `json:"topic_blocks"`
	Timeline    []TimelineEntry `json:"timeline"`
}

type TopicBlock struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

type TimelineEntry struct {
	When string `json:"when"`
	What string `json:"what"`
	Note string `json:"note,omitempty"`
}

// emptySummary has every list present and empty
func emptySummary() Summary {
	return Summary{
		SummaryTop3:    []string{},
		Decisions:      []string{},
		TodosUntilNext: []string{},
		RedFlags:       []string{},
		AskNextTime:    []string{},
		TermsPlain:     []Term{},
	}
}

// fallbackDetail is used when the detail response cannot be parsed
func fallbackDetail(s Summary) Detail {
	return Detail{
		Summary:     s,
		TopicBlocks: []TopicBlock{},
		Timeline:    []TimelineEntry{},
	}
}
