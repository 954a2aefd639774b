package jobtrack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIClient is the HTTP StatusSource speaking to the generation service.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient targets the service at baseURL. A nil HTTP client gets a
// short-timeout default; status polls should fail fast and retry next tick.
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type statusPayload struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Asset        *struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"asset"`
}

// Status implements StatusSource.
func (c *APIClient) Status(ctx context.Context, jobID string) (JobState, error) {
	var payload statusPayload
	err := c.get(ctx, "/v1/jobs/"+url.PathEscape(jobID), &payload)
	if err != nil {
		return JobState{}, err
	}
	state := JobState{Status: payload.Status, ErrorMessage: payload.ErrorMessage}
	if payload.Asset != nil {
		state.Result = &Result{AssetID: payload.Asset.ID, URL: payload.Asset.URL}
	}
	return state, nil
}

type pendingPayload struct {
	Items []struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"items"`
}

// Pending implements StatusSource.
func (c *APIClient) Pending(ctx context.Context, businessID string) ([]RemoteJob, error) {
	var payload pendingPayload
	if err := c.get(ctx, "/v1/businesses/"+url.PathEscape(businessID)+"/jobs/pending", &payload); err != nil {
		return nil, err
	}
	jobs := make([]RemoteJob, 0, len(payload.Items))
	for _, item := range payload.Items {
		jobs = append(jobs, RemoteJob{ID: item.ID, CreatedAt: item.CreatedAt})
	}
	return jobs, nil
}

// SubmitRequest carries a generation submission.
type SubmitRequest struct {
	BusinessID           string   `json:"business_id"`
	Prompt               string   `json:"prompt"`
	Style                string   `json:"style,omitempty"`
	AspectRatio          string   `json:"aspect_ratio,omitempty"`
	Quality              string   `json:"quality,omitempty"`
	StyleReferenceURLs   []string `json:"style_reference_urls,omitempty"`
	SubjectReferenceURLs []string `json:"subject_reference_urls,omitempty"`
}

// Submit creates a job and returns its id.
func (c *APIClient) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return "", apiError(resp)
	}
	var payload struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.JobID, nil
}

// Cancel deletes the server-side job record.
func (c *APIClient) Cancel(ctx context.Context, jobID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

func (c *APIClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return fmt.Errorf("jobtrack: api status %d", resp.StatusCode)
	}
	return fmt.Errorf("jobtrack: api status %d: %s", resp.StatusCode, msg)
}

var _ StatusSource = (*APIClient)(nil)
