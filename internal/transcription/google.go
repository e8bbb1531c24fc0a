package transcription

import (
	"context"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/nguyentantai21042004/carenote/internal/logger"
)

// GoogleConfig configures recognition requests
type GoogleConfig struct {
	LanguageCode    string
	Model           string
	SampleRateHertz int32
	CredentialsFile string
}

// Google is the Cloud Speech-to-Text long-running recognition client
type Google struct {
	client *speech.Client
	cfg    GoogleConfig
	logger logger.Logger
}

// NewGoogle creates a Cloud Speech client
func NewGoogle(ctx context.Context, cfg GoogleConfig, log logger.Logger) (*Google, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Google{client: client, cfg: cfg, logger: log}, nil
}

// Close releases the underlying client
func (g *Google) Close() error {
	return g.client.Close()
}

// Submit starts a long-running recognition of the audio at audioURI
func (g *Google) Submit(ctx context.Context, audioURI string) (string, error) {
	op, err := g.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            g.cfg.SampleRateHertz,
			LanguageCode:               g.cfg.LanguageCode,
			EnableAutomaticPunctuation: true,
			Model:                      g.cfg.Model,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: audioURI},
		},
	})
	if err != nil {
		return "", fmt.Errorf("long running recognize: %w", err)
	}

	g.logger.Info(ctx, "Transcription job started: %s (%s)", op.Name(), audioURI)
	return op.Name(), nil
}

// Query polls the operation once
func (g *Google) Query(ctx context.Context, jobID string) (*Operation, error) {
	op := g.client.LongRunningRecognizeOperation(jobID)
	resp, err := op.Poll(ctx)
	if err != nil && !op.Done() {
		return nil, fmt.Errorf("poll operation %s: %w", jobID, err)
	}

	out := &Operation{Name: jobID, Done: op.Done(), Err: err}
	if resp != nil {
		out.Result = toRecognition(resp)
	}
	return out, nil
}

func toRecognition(resp *speechpb.LongRunningRecognizeResponse) *Recognition {
	rec := &Recognition{}
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			rec.Segments = append(rec.Segments, "")
			continue
		}
		rec.Segments = append(rec.Segments, alts[0].GetTranscript())
	}
	return rec
}
