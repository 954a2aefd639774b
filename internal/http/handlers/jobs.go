package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/domain"
)

var allowedAspectRatios = map[string]struct{}{
	"1:1": {}, "16:9": {}, "9:16": {}, "4:5": {}, "3:2": {},
}

type generateRequest struct {
	BusinessID           string   `json:"business_id"`
	Prompt               string   `json:"prompt"`
	Style                string   `json:"style"`
	AspectRatio          string   `json:"aspect_ratio"`
	Quality              string   `json:"quality"`
	StyleReferenceURLs   []string `json:"style_reference_urls"`
	SubjectReferenceURLs []string `json:"subject_reference_urls"`
}

type jobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ImagesGenerate is the submission path. Validation and the business lookup
// reject synchronously; once a job exists, every later failure surfaces via
// the ledger, never via this response.
func (a *App) ImagesGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.BusinessID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "business_id required")
		return
	}
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt required")
		return
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "1:1"
	}
	if _, ok := allowedAspectRatios[req.AspectRatio]; !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported aspect ratio")
		return
	}

	if _, err := a.Businesses.GetByID(r.Context(), req.BusinessID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "business not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load business")
		return
	}

	// A fresh id per request guarantees the orchestrator never runs twice
	// for the same job.
	job := &domain.Job{
		ID:                   uuid.NewString(),
		BusinessID:           req.BusinessID,
		Status:               domain.JobStatusProcessing,
		Prompt:               req.Prompt,
		Style:                strings.TrimSpace(req.Style),
		AspectRatio:          req.AspectRatio,
		Quality:              domain.NormalizeQuality(req.Quality),
		StyleReferenceURLs:   req.StyleReferenceURLs,
		SubjectReferenceURLs: req.SubjectReferenceURLs,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	if a.SyncGeneration {
		a.Orchestrator.Run(r.Context(), job)
	} else {
		detached := context.WithoutCancel(r.Context())
		go a.Orchestrator.Run(detached, job)
	}

	a.json(w, http.StatusAccepted, jobResponse{JobID: job.ID, Status: string(domain.JobStatusProcessing)})
}

type assetResponse struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Prompt      string    `json:"prompt"`
	Style       string    `json:"style,omitempty"`
	AspectRatio string    `json:"aspect_ratio"`
	CreatedAt   time.Time `json:"created_at"`
}

type statusResponse struct {
	ID           string         `json:"id"`
	BusinessID   string         `json:"business_id"`
	Status       string         `json:"status"`
	Prompt       string         `json:"prompt"`
	AspectRatio  string         `json:"aspect_ratio"`
	Quality      string         `json:"quality"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Asset        *assetResponse `json:"asset,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// JobStatus reports a job's lifecycle state, denormalizing the result asset
// once the job is completed so pollers need a single round-trip.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	resp := statusResponse{
		ID:           job.ID,
		BusinessID:   job.BusinessID,
		Status:       string(job.Status),
		Prompt:       job.Prompt,
		AspectRatio:  job.AspectRatio,
		Quality:      string(job.Quality),
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
	if job.Status == domain.JobStatusCompleted && job.ResultAssetID != "" {
		if asset, err := a.Assets.GetByID(r.Context(), job.ResultAssetID); err == nil {
			resp.Asset = &assetResponse{
				ID:          asset.ID,
				URL:         asset.URL,
				Prompt:      asset.Prompt,
				Style:       asset.Style,
				AspectRatio: asset.AspectRatio,
				CreatedAt:   asset.CreatedAt,
			}
		} else {
			a.Logger.Error().Err(err).Str("job_id", job.ID).Str("asset_id", job.ResultAssetID).Msg("status: load result asset")
		}
	}
	a.json(w, http.StatusOK, resp)
}

// PendingJobs lists a business's non-terminal jobs, newest first. Clients
// use it to recover jobs they never locally cached.
func (a *App) PendingJobs(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "business_id")
	if businessID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "business_id required")
		return
	}
	jobs, err := a.Jobs.ListPending(r.Context(), businessID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	items := make([]statusResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, statusResponse{
			ID:          job.ID,
			BusinessID:  job.BusinessID,
			Status:      string(job.Status),
			Prompt:      job.Prompt,
			AspectRatio: job.AspectRatio,
			Quality:     string(job.Quality),
			CreatedAt:   job.CreatedAt,
			UpdatedAt:   job.UpdatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// CancelJob removes the ledger record. Cancellation is advisory: an
// in-flight pipeline is not interrupted, its eventual terminal update just
// lands on a missing row and no-ops.
func (a *App) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	if err := a.Jobs.Delete(r.Context(), jobID); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to cancel job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BusinessAssets lists generated assets for a business, newest first.
func (a *App) BusinessAssets(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "business_id")
	if businessID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "business_id required")
		return
	}
	assets, err := a.Assets.ListByBusiness(r.Context(), businessID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list assets")
		return
	}
	items := make([]assetResponse, 0, len(assets))
	for _, asset := range assets {
		items = append(items, assetResponse{
			ID:          asset.ID,
			URL:         asset.URL,
			Prompt:      asset.Prompt,
			Style:       asset.Style,
			AspectRatio: asset.AspectRatio,
			CreatedAt:   asset.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
