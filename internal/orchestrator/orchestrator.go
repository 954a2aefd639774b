package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/domain"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/genai"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/infra"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/storage"
)

// DebugPrefix short-circuits the external model call and the storage upload
// with a canned result, exercising the ledger and asset bookkeeping without
// the costly generation round-trip.
const DebugPrefix = "debug:"

const debugPlaceholderURL = "debug://placeholder.png"

// Generator is the external image-generation capability, consumed as an
// opaque request/response interface.
type Generator interface {
	Generate(ctx context.Context, req genai.GenerateRequest) ([]genai.Part, error)
}

// Orchestrator runs the generation pipeline for one job and guarantees the
// ledger reaches a terminal state regardless of where the pipeline fails.
type Orchestrator struct {
	jobs       domain.JobRepository
	assets     domain.AssetRepository
	businesses domain.BusinessRepository
	gen        Generator
	store      storage.Store
	refs       *ReferenceFetcher
	logger     infra.Logger
}

// New wires an orchestrator against its collaborators.
func New(jobs domain.JobRepository, assets domain.AssetRepository, businesses domain.BusinessRepository, gen Generator, store storage.Store, refs *ReferenceFetcher, logger infra.Logger) *Orchestrator {
	if refs == nil {
		refs = NewReferenceFetcher(nil, logger)
	}
	return &Orchestrator{
		jobs:       jobs,
		assets:     assets,
		businesses: businesses,
		gen:        gen,
		store:      store,
		refs:       refs,
		logger:     logger,
	}
}

// Run executes the pipeline for a freshly created job. Every failure inside
// the pipeline converges to exactly one failed ledger update with the
// captured message; nothing propagates to a submitter that already has its
// response. Run must only be invoked once per job id; the submission path
// mints a fresh id per request.
func (o *Orchestrator) Run(ctx context.Context, job *domain.Job) {
	if err := o.generate(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: job failed")
		if failErr := o.jobs.Fail(ctx, job.ID, err.Error()); failErr != nil {
			o.logger.Error().Err(failErr).Str("job_id", job.ID).Msg("orchestrator: record failure")
		}
		return
	}
	o.logger.Info().Str("job_id", job.ID).Msg("orchestrator: job completed")
}

func (o *Orchestrator) generate(ctx context.Context, job *domain.Job) error {
	biz, err := o.businesses.GetByID(ctx, job.BusinessID)
	if err != nil {
		return fmt.Errorf("load business: %w", err)
	}

	prompt := BuildPrompt(job, biz)

	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(job.Prompt)), DebugPrefix) {
		return o.finish(ctx, job, debugPlaceholderURL)
	}

	parts := []genai.Part{genai.TextPart(prompt)}
	for _, ref := range o.referenceURLs(job, biz) {
		part, ok := o.refs.Fetch(ctx, ref)
		if !ok {
			continue
		}
		parts = append(parts, part)
	}

	response, err := o.gen.Generate(ctx, genai.GenerateRequest{
		Parts:       parts,
		AspectRatio: job.AspectRatio,
		Premium:     job.Quality == domain.QualityPremium,
	})
	if err != nil {
		return fmt.Errorf("generate image: %w", err)
	}

	data, mimeType, ok := firstImage(response)
	if !ok {
		return domain.ErrNoImage
	}

	key := fmt.Sprintf("%s/%s%s", job.BusinessID, job.ID, extensionForMIME(mimeType))
	url, err := o.store.Upload(ctx, key, data, mimeType)
	if err != nil {
		return fmt.Errorf("upload asset: %w", err)
	}

	return o.finish(ctx, job, url)
}

// finish creates the asset row and flips the job to completed.
func (o *Orchestrator) finish(ctx context.Context, job *domain.Job, url string) error {
	asset := &domain.Asset{
		ID:          uuid.NewString(),
		BusinessID:  job.BusinessID,
		URL:         url,
		Prompt:      job.Prompt,
		Style:       job.Style,
		AspectRatio: job.AspectRatio,
		Quality:     job.Quality,
	}
	if err := o.assets.Create(ctx, asset); err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	if err := o.jobs.Complete(ctx, job.ID, asset.ID); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// referenceURLs collects the style samples, subject shots, and brand logo
// that condition the generation.
func (o *Orchestrator) referenceURLs(job *domain.Job, biz *domain.Business) []string {
	var urls []string
	urls = append(urls, job.StyleReferenceURLs...)
	urls = append(urls, job.SubjectReferenceURLs...)
	if biz.LogoURL != "" {
		urls = append(urls, biz.LogoURL)
	}
	return urls
}

func firstImage(parts []genai.Part) ([]byte, string, bool) {
	for _, part := range parts {
		if data, mimeType, ok := part.ImageBytes(); ok {
			return data, mimeType, true
		}
	}
	return nil, "", false
}

func extensionForMIME(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
