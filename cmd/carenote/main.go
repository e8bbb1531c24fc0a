package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nguyentantai21042004/carenote/internal/assembler"
	"github.com/nguyentantai21042004/carenote/internal/config"
	"github.com/nguyentantai21042004/carenote/internal/delivery"
	"github.com/nguyentantai21042004/carenote/internal/ingest"
	"github.com/nguyentantai21042004/carenote/internal/jobcache"
	"github.com/nguyentantai21042004/carenote/internal/jobs"
	"github.com/nguyentantai21042004/carenote/internal/logger"
	"github.com/nguyentantai21042004/carenote/internal/metrics"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
	"github.com/nguyentantai21042004/carenote/internal/poller"
	"github.com/nguyentantai21042004/carenote/internal/server"
	"github.com/nguyentantai21042004/carenote/internal/summarizer"
	"github.com/nguyentantai21042004/carenote/internal/transcoder"
	"github.com/nguyentantai21042004/carenote/internal/transcription"
	"github.com/nguyentantai21042004/carenote/internal/watcher"
	"github.com/nguyentantai21042004/carenote/pkg/executor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync(log)
	log.Info(ctx, "carenote starting on %s/%s (%d CPUs)", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "%v", err)
		logger.Sync(log)
		os.Exit(1)
	}
	log.Info(ctx, "carenote stopped")
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	if err := os.MkdirAll(cfg.Paths.Data, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info(ctx, "Object store: %s", cfg.Storage.Backend)

	stt, err := transcription.NewGoogle(ctx, transcription.GoogleConfig{
		LanguageCode:    cfg.Speech.LanguageCode,
		Model:           cfg.Speech.Model,
		SampleRateHertz: transcoder.SampleRate,
		CredentialsFile: cfg.Storage.CredentialsFile,
	}, log)
	if err != nil {
		return fmt.Errorf("create speech client: %w", err)
	}
	defer stt.Close()

	cache, err := jobcache.Open(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("open job cache: %w", err)
	}
	defer cache.Close()

	gen, err := summarizer.NewGemini(cfg.Gemini.APIKeys, cfg.Gemini.Model, log)
	if err != nil {
		return err
	}

	var messenger delivery.Messenger = logMessenger{log}
	if cfg.Line.ChannelAccessToken != "" {
		if messenger, err = delivery.NewLine(cfg.Line.ChannelAccessToken); err != nil {
			return err
		}
	} else {
		log.Warn(ctx, "No LINE channel access token; memos are only logged")
	}

	coord := jobs.New(jobs.Deps{
		Store:       store,
		Assembler:   assembler.New(store, log, cfg.Storage.MaxCompose),
		Transcoder:  transcoder.New(cfg.FFmpeg.BinaryPath, executor.New(), log),
		Transcriber: stt,
		Cache:       cache,
		Metrics:     m,
		Logger:      log,
	}, cfg.Paths.Data)

	sum := summarizer.New(gen, store, summarizer.Options{
		Temperature:     cfg.Summary.Temperature,
		TopP:            cfg.Summary.TopP,
		ShortMaxTokens:  cfg.Summary.ShortMaxTokens,
		DetailMaxTokens: cfg.Summary.DetailMaxTokens,
		DetailURLTTL:    cfg.DetailURLTTL(),
		RenderDocx:      cfg.Summary.RenderDocx,
	}, m, log)

	poll := poller.New(poller.Deps{
		Store:       store,
		Transcriber: stt,
		Meta:        coord,
		Summarizer:  sum,
		Deliverer:   delivery.New(messenger, store, m, log),
		Metrics:     m,
		Logger:      log,
	}, poller.Options{
		MinTranscriptChars: *cfg.Summary.MinTranscriptChars,
		LockTTL:            cfg.Delivery.LockTTL,
		DetailURLTTL:       cfg.DetailURLTTL(),
	})

	srv := server.New(server.Deps{
		Store:       store,
		Coordinator: coord,
		Poller:      poll,
		Recent:      cache,
		Metrics:     m,
		Gatherer:    reg,
		Logger:      log,
	}, server.Options{
		Addr:         cfg.Server.Addr,
		AllowOrigin:  cfg.Server.AllowOrigin,
		UploadURLTTL: cfg.Storage.UploadURLTTL,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 2)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	if cfg.Ingest.Enabled {
		if err := os.MkdirAll(cfg.Paths.Inbox, 0755); err != nil {
			return fmt.Errorf("create inbox: %w", err)
		}
		ing := ingest.New(store, coord, log)
		w, err := watcher.New(cfg.Paths.Inbox, ing.HandleManifest, log, watcher.Options{
			Extensions:    []string{".json"},
			MaxConcurrent: cfg.Performance.MaxConcurrent,
			Settle:        500 * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("create inbox watcher: %w", err)
		}
		defer w.Stop()

		go func() {
			if err := w.Start(ctx); err != nil && err != context.Canceled {
				errChan <- fmt.Errorf("inbox watcher: %w", err)
			}
		}()
		log.Info(ctx, "Watching inbox %s", cfg.Paths.Inbox)
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
	case runErr = <-errChan:
	}

	log.Info(ctx, "Shutting down gracefully...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "HTTP shutdown: %v", err)
	}
	return runErr
}

func openStore(ctx context.Context, cfg *config.Config) (objstore.Store, func(), error) {
	if cfg.Storage.Backend == "memory" {
		return objstore.NewMemory(), func() {}, nil
	}
	gcs, err := objstore.NewGCS(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open bucket: %w", err)
	}
	return gcs, func() { gcs.Close() }, nil
}

// logMessenger stands in for LINE when no token is configured
type logMessenger struct {
	log logger.Logger
}

func (l logMessenger) Push(ctx context.Context, to, text, retryKey string) error {
	l.log.Info(ctx, "Push to %s (retry key %s):\n%s", to, retryKey, text)
	return nil
}
