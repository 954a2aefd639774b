package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/infra"
	"github.com/IkonicR/ads-x-create-v2-sub005/pkg/jobtrack"
)

// jobwatch submits a generation request and tracks it (plus any other jobs
// pending for the business) to its terminal outcome. Running several
// copies against the same redis shows the cross-instance merge at work.
func main() {
	_ = godotenv.Load()

	var (
		server   = flag.String("server", "http://localhost:8080", "generation API base URL")
		business = flag.String("business", "demo-business", "business id to track")
		prompt   = flag.String("prompt", "", "prompt to submit before tracking (optional)")
		style    = flag.String("style", "", "visual style name")
		aspect   = flag.String("aspect", "1:1", "aspect ratio")
		quality  = flag.String("quality", "standard", "quality tier")
		snapshot = flag.String("snapshot", defaultSnapshotPath(), "snapshot file for restart recovery")
	)
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := jobtrack.NewAPIClient(*server, nil)

	snaps, err := jobtrack.NewFileSnapshotStore(*snapshot)
	if err != nil {
		logger.Fatal().Err(err).Msg("jobwatch: snapshot store")
	}

	var bus jobtrack.Broadcaster = jobtrack.NoopBus{}
	if cfg.RedisAddr != "" {
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("jobwatch: redis")
		}
		defer client.Close()
		bus = jobtrack.NewRedisBus(client, "jobtrack:"+*business, logger)
	}

	done := make(chan struct{}, 16)
	registry := jobtrack.NewRegistry(jobtrack.Options{
		Source:     api,
		Snapshots:  snaps,
		Bus:        bus,
		Logger:     logger,
		BusinessID: *business,
		OnResult: func(job jobtrack.ClientJob) {
			logger.Info().Str("job_id", job.ID).Str("url", job.Result.URL).Msg("jobwatch: image ready")
			done <- struct{}{}
		},
		OnEvict: func(job jobtrack.ClientJob, reason jobtrack.EvictReason) {
			logger.Warn().Str("job_id", job.ID).Str("reason", string(reason)).Msg("jobwatch: job gone")
			done <- struct{}{}
		},
	})
	if err := registry.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("jobwatch: registry start")
	}
	defer registry.Close()

	if *prompt != "" {
		jobID, err := api.Submit(ctx, jobtrack.SubmitRequest{
			BusinessID:  *business,
			Prompt:      *prompt,
			Style:       *style,
			AspectRatio: *aspect,
			Quality:     *quality,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("jobwatch: submit")
		}
		logger.Info().Str("job_id", jobID).Msg("jobwatch: submitted")
		registry.AddJob(jobtrack.ClientJob{
			ID:         jobID,
			Type:       "jobwatch",
			BusinessID: *business,
		})
	}

	for {
		if len(registry.JobsForBusiness(*business)) == 0 {
			logger.Info().Msg("jobwatch: nothing left to track")
			return
		}
		select {
		case <-ctx.Done():
			logger.Info().Msg("jobwatch: interrupted, snapshot kept for next run")
			return
		case <-done:
		}
	}
}

func defaultSnapshotPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jobwatch.json"
	}
	return filepath.Join(home, ".jobwatch.json")
}
