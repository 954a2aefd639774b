package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	PremiumModel string
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// Client is a thin facade over the Gemini generateContent API focused on
// image output. It accepts a multimodal request (text plus inline-encoded
// image segments) and returns the raw response parts; interpreting them is
// the caller's concern.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	premiumModel string
	httpClient   *http.Client
	logger       *infra.Logger
}

// Part is one segment of a multimodal request or response.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries base64-encoded binary content.
type InlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// TextPart builds a text segment.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart builds an inline image segment from raw bytes.
func ImagePart(mimeType string, data []byte) Part {
	return Part{InlineData: &InlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}}
}

// ImageBytes decodes the inline payload of an image part. The boolean is
// false when the part carries no decodable image.
func (p Part) ImageBytes() ([]byte, string, bool) {
	if p.InlineData == nil || p.InlineData.Data == "" {
		return nil, "", false
	}
	if !strings.HasPrefix(p.InlineData.MimeType, "image/") {
		return nil, "", false
	}
	data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
	if err != nil || len(data) == 0 {
		return nil, "", false
	}
	return data, p.InlineData.MimeType, true
}

// GenerateRequest describes one generateContent invocation.
type GenerateRequest struct {
	Parts       []Part
	AspectRatio string
	Premium     bool
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may
// provide a nil HTTP client; one with a generation-friendly timeout is
// created instead.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	premium := opts.PremiumModel
	if premium == "" {
		premium = model
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		premiumModel: premium,
		httpClient:   client,
		logger:       logger,
	}, nil
}

// Model returns the model identifier used for the given tier.
func (c *Client) Model(premium bool) string {
	if premium {
		return c.premiumModel
	}
	return c.model
}

// Generate performs one generateContent call and returns all response parts
// in candidate order. An empty part list is not an error here; callers that
// require an image decide what absence means.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) ([]Part, error) {
	model := c.Model(req.Premium)
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: req.Parts}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
		payload.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: aspect}
	}

	var response generateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model))
	if err := c.invoke(ctx, path, payload, &response); err != nil {
		return nil, err
	}

	var parts []Part
	for _, cand := range response.Candidates {
		parts = append(parts, cand.Content.Parts...)
	}

	c.logger.Debug().
		Str("model", model).
		Int("parts", len(parts)).
		Msg("genai: generateContent done")

	return parts, nil
}

func (c *Client) invoke(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}
