package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nguyentantai21042004/carenote/internal/apperr"
	"github.com/nguyentantai21042004/carenote/internal/layout"
	"github.com/nguyentantai21042004/carenote/internal/logger"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
)

type fakeGenerator struct {
	mu     sync.Mutex
	short  string
	detail string
	err    error
	calls  []GenerateOptions
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, `"topic_blocks"`) {
		return f.detail, nil
	}
	return f.short, nil
}

func TestParseLoose(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
		wantErr bool
	}{
		{"plain", `{"decisions":["a"]}`, "decisions", false},
		{"fenced", "```json\n{\"decisions\":[\"a\"]}\n```", "decisions", false},
		{"fenced upper", "```JSON\n{\"red_flags\":[]}\n```", "red_flags", false},
		{"prose around", "Here is the memo:\n{\"summary_top3\":[\"x\"]}\nThanks", "summary_top3", false},
		{"empty", "   ", "", true},
		{"not json", "no braces here", "", true},
		{"array", "[1,2,3]", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLoose(tt.input)
			if tt.wantErr {
				if !apperr.IsKind(err, apperr.KindParse) {
					t.Errorf("error = %v, want parse error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok := got[tt.wantKey]; !ok {
				t.Errorf("key %q missing from %v", tt.wantKey, got)
			}
		})
	}
}

func TestDecodeSummaryCoercesLists(t *testing.T) {
	doc, err := ParseLoose(`{
		"summary_top3": "not a list",
		"decisions": ["薬を変更", 3, null],
		"terms_plain": [{"term": "PPI", "easy": "胃酸をおさえる薬"}, "stray"]
	}`)
	if err != nil {
		t.Fatal(err)
	}
	s := decodeSummary(doc)

	if s.SummaryTop3 == nil || len(s.SummaryTop3) != 0 {
		t.Errorf("SummaryTop3 = %#v, want empty list", s.SummaryTop3)
	}
	if len(s.Decisions) != 1 || s.Decisions[0] != "薬を変更" {
		t.Errorf("Decisions = %#v", s.Decisions)
	}
	if s.RedFlags == nil || s.AskNextTime == nil || s.TodosUntilNext == nil {
		t.Error("missing fields must decode to empty lists")
	}
	if len(s.TermsPlain) != 1 || s.TermsPlain[0].Term != "PPI" {
		t.Errorf("TermsPlain = %#v", s.TermsPlain)
	}

	out, _ := json.Marshal(s)
	if strings.Contains(string(out), "null") {
		t.Errorf("encoded summary contains null: %s", out)
	}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemory()
	gen := &fakeGenerator{
		short:  "```json\n{\"summary_top3\":[\"血圧は安定\"],\"decisions\":[\"薬は継続\"],\"todos_until_next\":[],\"red_flags\":[],\"ask_next_time\":[],\"terms_plain\":[]}\n```",
		detail: `{"summary":"概要です","summary_top3":["血圧は安定"],"topic_blocks":[{"title":"<script>","bullets":["a"]}],"timeline":[]}`,
	}
	opts := DefaultOptions()
	s := New(gen, store, opts, nil, logger.NewNop())

	art, err := s.Summarize(ctx, "s1", "今日は血圧の話をしました")
	if err != nil {
		t.Fatal(err)
	}

	if len(gen.calls) != 2 {
		t.Fatalf("generate calls = %d, want 2", len(gen.calls))
	}
	tokens := map[int32]bool{}
	for _, c := range gen.calls {
		tokens[c.MaxTokens] = true
		if !c.JSON || c.Temperature != 0.2 || c.TopP != 0.9 {
			t.Errorf("options = %+v", c)
		}
	}
	if !tokens[2200] || !tokens[3200] {
		t.Errorf("max tokens = %v, want 2200 and 3200", tokens)
	}

	if art.Summary.Decisions[0] != "薬は継続" {
		t.Errorf("Decisions = %v", art.Summary.Decisions)
	}
	if art.Detail.Overview != "概要です" {
		t.Errorf("Overview = %q", art.Detail.Overview)
	}
	if !strings.HasPrefix(art.DetailURL, "mem://"+layout.SummaryHTMLKey("s1")) {
		t.Errorf("DetailURL = %q", art.DetailURL)
	}

	for _, key := range []string{layout.SummaryKey("s1"), layout.SummaryFullKey("s1"), layout.SummaryHTMLKey("s1")} {
		if ok, _ := store.Exists(ctx, key); !ok {
			t.Errorf("%s not stored", key)
		}
	}
	if ok, _ := store.Exists(ctx, layout.SummaryDocxKey("s1")); ok {
		t.Error("docx stored although disabled")
	}

	html, _ := store.Download(ctx, layout.SummaryHTMLKey("s1"))
	if strings.Contains(string(html), "<script>") {
		t.Error("detail page is not escaped")
	}
	if !strings.Contains(string(html), "今日は血圧の話をしました") {
		t.Error("detail page lacks the transcript")
	}

	stored, _ := store.Download(ctx, layout.SummaryKey("s1"))
	if string(stored) != string(art.SummaryJSON) {
		t.Error("returned summary differs from stored summary")
	}
}

func TestSummarizeDegradesOnFailure(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"generation error", &fakeGenerator{err: errors.New("503")}},
		{"unparseable output", &fakeGenerator{short: "申し訳ありません", detail: "```"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := objstore.NewMemory()
			s := New(tt.gen, store, DefaultOptions(), nil, logger.NewNop())

			art, err := s.Summarize(context.Background(), "s1", "transcript")
			if err != nil {
				t.Fatalf("Summarize() error = %v", err)
			}
			if art.Summary.SummaryTop3 == nil || len(art.Summary.SummaryTop3) != 0 {
				t.Errorf("SummaryTop3 = %#v, want empty", art.Summary.SummaryTop3)
			}
			if art.Detail.TopicBlocks == nil || art.Detail.Timeline == nil {
				t.Error("fallback detail must carry empty lists")
			}
			if ok, _ := store.Exists(context.Background(), layout.SummaryHTMLKey("s1")); !ok {
				t.Error("detail page not stored")
			}
		})
	}
}

func TestRenderDocx(t *testing.T) {
	d := Detail{
		Overview: "概要\n二行目",
		Summary: Summary{
			SummaryTop3: []string{"要点"},
			TermsPlain:  []Term{{Term: "PPI", Easy: "胃薬", Note: "食前"}},
		},
		TopicBlocks: []TopicBlock{{Title: "生活", Bullets: []string{"散歩"}}},
		Timeline:    []TimelineEntry{{When: "2週間後", What: "再診"}},
	}

	data, err := renderDocx(d, "文字起こし")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 4 || string(data[:2]) != "PK" {
		t.Error("docx output is not a zip archive")
	}
}

// rendezvousGenerator only answers once both prompts are in flight
type rendezvousGenerator struct {
	fakeGenerator
	arrived sync.WaitGroup
	timeout time.Duration
}

func (g *rendezvousGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	g.arrived.Done()
	both := make(chan struct{})
	go func() {
		g.arrived.Wait()
		close(both)
	}()
	select {
	case <-both:
	case <-time.After(g.timeout):
		return "", errors.New("other generation never started")
	}
	return g.fakeGenerator.Generate(ctx, prompt, opts)
}

func TestSummarizeGeneratesConcurrently(t *testing.T) {
	gen := &rendezvousGenerator{
		fakeGenerator: fakeGenerator{
			short:  `{"summary_top3":["a"],"decisions":[],"todos_until_next":[],"red_flags":[],"ask_next_time":[],"terms_plain":[]}`,
			detail: `{"summary":"概要","topic_blocks":[],"timeline":[]}`,
		},
		timeout: 5 * time.Second,
	}
	gen.arrived.Add(2)
	s := New(gen, objstore.NewMemory(), DefaultOptions(), nil, logger.NewNop())

	art, err := s.Summarize(context.Background(), "s1", "今日は血圧の話をしました")
	if err != nil {
		t.Fatal(err)
	}
	// a sequential implementation times out on the first call and degrades
	if len(art.Summary.SummaryTop3) != 1 || art.Detail.Overview != "概要" {
		t.Errorf("generations did not overlap: summary=%+v overview=%q", art.Summary, art.Detail.Overview)
	}
}
