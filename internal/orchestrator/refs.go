package orchestrator

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/genai"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/infra"
)

// maxReferenceBytes caps a single reference image download.
const maxReferenceBytes = 8 << 20

// ReferenceFetcher downloads reference images and inline-encodes them as
// multimodal request segments. A failed fetch is never fatal to the job; the
// reference is logged and dropped. Fetches run sequentially to keep failure
// attribution simple and resource use bounded.
type ReferenceFetcher struct {
	client *http.Client
	logger infra.Logger
}

// NewReferenceFetcher builds a fetcher; a nil HTTP client gets one with a
// short timeout so a dead reference host cannot stall the pipeline.
func NewReferenceFetcher(client *http.Client, logger infra.Logger) *ReferenceFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ReferenceFetcher{client: client, logger: logger}
}

// Fetch resolves one reference URL into an inline image part. The boolean is
// false when the reference was dropped.
func (f *ReferenceFetcher) Fetch(ctx context.Context, url string) (genai.Part, bool) {
	url = strings.TrimSpace(url)
	if url == "" {
		return genai.Part{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.drop(url, err)
		return genai.Part{}, false
	}
	resp, err := f.client.Do(req)
	if err != nil {
		f.drop(url, err)
		return genai.Part{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn().Str("url", url).Int("status", resp.StatusCode).Msg("orchestrator: reference image dropped")
		return genai.Part{}, false
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes))
	if err != nil || len(data) == 0 {
		f.drop(url, err)
		return genai.Part{}, false
	}

	mimeType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		f.logger.Warn().Str("url", url).Str("mime", mimeType).Msg("orchestrator: reference is not an image, dropped")
		return genai.Part{}, false
	}

	return genai.ImagePart(mimeType, data), true
}

func (f *ReferenceFetcher) drop(url string, err error) {
	f.logger.Warn().Err(err).Str("url", url).Msg("orchestrator: reference image dropped")
}
