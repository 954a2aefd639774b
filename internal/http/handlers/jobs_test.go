package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/adapter/repo"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/domain"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/genai"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/http/handlers"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/http/httpapi"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/orchestrator"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/storage"
)

type fixedGenerator struct {
	parts []genai.Part
	err   error
}

func (g *fixedGenerator) Generate(ctx context.Context, req genai.GenerateRequest) ([]genai.Part, error) {
	return g.parts, g.err
}

func newTestServer(t *testing.T, gen orchestrator.Generator) (*httptest.Server, *repo.Memory) {
	t.Helper()
	mem := repo.NewMemory()
	mem.SeedBusiness(domain.Business{ID: "biz-1", Name: "Harbor Coffee", Industry: "Food & Beverage"})
	logger := zerolog.Nop()
	orc := orchestrator.New(mem.Jobs(), mem.Assets(), mem.Businesses(), gen, storage.NewMemStore(), nil, logger)
	app := &handlers.App{
		Jobs:           mem.Jobs(),
		Assets:         mem.Assets(),
		Businesses:     mem.Businesses(),
		Orchestrator:   orc,
		Logger:         logger,
		SyncGeneration: true,
	}
	server := httptest.NewServer(httpapi.NewRouter(app, nil))
	t.Cleanup(server.Close)
	return server, mem
}

func submit(t *testing.T, server *httptest.Server, body map[string]any) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(body)
	resp, err := http.Post(server.URL+"/v1/images/generations", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	server, mem := newTestServer(t, &fixedGenerator{})

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing prompt", map[string]any{"business_id": "biz-1"}, http.StatusBadRequest},
		{"missing business", map[string]any{"prompt": "a mug"}, http.StatusBadRequest},
		{"unknown business", map[string]any{"business_id": "ghost", "prompt": "a mug"}, http.StatusNotFound},
		{"bad aspect ratio", map[string]any{"business_id": "biz-1", "prompt": "a mug", "aspect_ratio": "7:5"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := submit(t, server, tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	// Synchronous rejections never create a ledger record.
	pending, err := mem.Jobs().ListPending(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("rejected submissions created %d jobs", len(pending))
	}
}

func TestSubmitDebugPromptCompletes(t *testing.T) {
	server, _ := newTestServer(t, &fixedGenerator{})

	resp := submit(t, server, map[string]any{
		"business_id":  "biz-1",
		"prompt":       "debug: anything",
		"aspect_ratio": "1:1",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	var accepted struct {
		JobID string `json:"job_id"`
	}
	decode(t, resp, &accepted)
	if accepted.JobID == "" {
		t.Fatal("no job id returned")
	}

	statusResp, err := http.Get(server.URL + "/v1/jobs/" + accepted.JobID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer statusResp.Body.Close()
	var status struct {
		Status string `json:"status"`
		Asset  *struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"asset"`
	}
	decode(t, statusResp, &status)
	if status.Status != "completed" {
		t.Fatalf("status = %s, want completed", status.Status)
	}
	if status.Asset == nil || status.Asset.ID == "" {
		t.Fatal("completed job has no denormalized asset")
	}
}

func TestSubmitFailedGenerationSurfacesViaStatus(t *testing.T) {
	server, _ := newTestServer(t, &fixedGenerator{parts: []genai.Part{genai.TextPart("nope")}})

	resp := submit(t, server, map[string]any{"business_id": "biz-1", "prompt": "a mug"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d, want 202 even when the pipeline fails", resp.StatusCode)
	}
	var accepted struct {
		JobID string `json:"job_id"`
	}
	decode(t, resp, &accepted)

	statusResp, err := http.Get(server.URL + "/v1/jobs/" + accepted.JobID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer statusResp.Body.Close()
	var status struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	decode(t, statusResp, &status)
	if status.Status != "failed" {
		t.Fatalf("status = %s, want failed", status.Status)
	}
	if !strings.Contains(status.ErrorMessage, "No image in response") {
		t.Fatalf("error message = %q", status.ErrorMessage)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	server, _ := newTestServer(t, &fixedGenerator{})
	resp, err := http.Get(server.URL + "/v1/jobs/nope")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPendingListsProcessingJobs(t *testing.T) {
	server, mem := newTestServer(t, &fixedGenerator{})

	// Seed directly so the jobs stay in processing.
	_ = mem.Jobs().Create(context.Background(), &domain.Job{ID: "j1", BusinessID: "biz-1", Prompt: "one"})
	_ = mem.Jobs().Create(context.Background(), &domain.Job{ID: "j2", BusinessID: "biz-1", Prompt: "two"})
	_ = mem.Jobs().Complete(context.Background(), "j2", "asset")

	resp, err := http.Get(server.URL + "/v1/businesses/biz-1/jobs/pending")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	defer resp.Body.Close()
	var payload struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decode(t, resp, &payload)
	if len(payload.Items) != 1 || payload.Items[0].ID != "j1" {
		t.Fatalf("pending items = %+v, want only j1", payload.Items)
	}
}

func TestCancelRemovesJob(t *testing.T) {
	server, mem := newTestServer(t, &fixedGenerator{})
	_ = mem.Jobs().Create(context.Background(), &domain.Job{ID: "j1", BusinessID: "biz-1"})

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/v1/jobs/j1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel status = %d, want 204", resp.StatusCode)
	}

	statusResp, err := http.Get(server.URL + "/v1/jobs/j1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer statusResp.Body.Close()
	if statusResp.StatusCode != http.StatusNotFound {
		t.Fatalf("status after cancel = %d, want 404", statusResp.StatusCode)
	}
}
