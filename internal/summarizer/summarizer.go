package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nguyentantai21042004/carenote/internal/layout"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
	"golang.org/x/sync/errgroup"
)

// Summarize runs the short and detail generations concurrently, persists the
// artifacts and signs a read URL for the detail page. Generation and parse
// failures degrade to empty structures; only storage failures are returned.
func (s *implSummarizer) Summarize(ctx context.Context, sessionID, transcript string) (*Artifacts, error) {
	start := time.Now()

	var shortText, detailText string
	var shortErr, detailErr error
	var g errgroup.Group
	g.Go(func() error {
		shortText, shortErr = s.generator.Generate(ctx, buildPrompt(shortPrompt, transcript), GenerateOptions{
			Temperature: s.opts.Temperature,
			TopP:        s.opts.TopP,
			MaxTokens:   s.opts.ShortMaxTokens,
			JSON:        true,
		})
		return nil
	})
	g.Go(func() error {
		detailText, detailErr = s.generator.Generate(ctx, buildPrompt(detailPrompt, transcript), GenerateOptions{
			Temperature: s.opts.Temperature,
			TopP:        s.opts.TopP,
			MaxTokens:   s.opts.DetailMaxTokens,
			JSON:        true,
		})
		return nil
	})
	g.Wait()
	s.metrics.SummarizeDuration(time.Since(start))
	s.logger.Info(ctx, "Generated summaries for %s in %s", sessionID, time.Since(start))

	summary := s.parseSummary(ctx, shortText, shortErr)
	detail := s.parseDetail(ctx, detailText, detailErr, summary)

	summaryJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	detailJSON, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal detail: %w", err)
	}
	html, err := renderHTML(detail, transcript)
	if err != nil {
		return nil, fmt.Errorf("render detail page: %w", err)
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return s.store.Upload(ectx, layout.SummaryKey(sessionID), summaryJSON, "application/json")
	})
	eg.Go(func() error {
		return s.store.Upload(ectx, layout.SummaryFullKey(sessionID), detailJSON, "application/json")
	})
	eg.Go(func() error {
		return s.store.Upload(ectx, layout.SummaryHTMLKey(sessionID), html, "text/html; charset=utf-8")
	})
	if s.opts.RenderDocx {
		eg.Go(func() error {
			doc, err := renderDocx(detail, transcript)
			if err != nil {
				s.logger.Warn(ectx, "Failed to render docx for %s: %v", sessionID, err)
				return nil
			}
			return s.store.Upload(ectx, layout.SummaryDocxKey(sessionID), doc,
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document")
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("persist summaries: %w", err)
	}

	url, err := s.store.SignedURL(ctx, layout.SummaryHTMLKey(sessionID), objstore.SignOptions{
		Method: http.MethodGet,
		TTL:    s.opts.DetailURLTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("sign detail url: %w", err)
	}

	return &Artifacts{
		Summary:     summary,
		Detail:      detail,
		SummaryJSON: summaryJSON,
		DetailURL:   url,
	}, nil
}

func (s *implSummarizer) parseSummary(ctx context.Context, text string, genErr error) Summary {
	if genErr != nil {
		s.logger.Error(ctx, "Short summary generation failed: %v", genErr)
		return emptySummary()
	}
	doc, err := ParseLoose(text)
	if err != nil {
		s.logger.Error(ctx, "Short summary parse failed: %v", err)
		return emptySummary()
	}
	if err := checkShape(summarySchema, doc); err != nil {
		s.logger.Warn(ctx, "%v", err)
	}
	return decodeSummary(doc)
}

func (s *implSummarizer) parseDetail(ctx context.Context, text string, genErr error, short Summary) Detail {
	if genErr != nil {
		s.logger.Error(ctx, "Detail summary generation failed: %v", genErr)
		return fallbackDetail(short)
	}
	doc, err := ParseLoose(text)
	if err != nil {
		s.logger.Error(ctx, "Detail summary parse failed: %v", err)
		return fallbackDetail(short)
	}
	if err := checkShape(detailSchema, doc); err != nil {
		s.logger.Warn(ctx, "%v", err)
	}
	return decodeDetail(doc)
}
