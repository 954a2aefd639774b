package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateReturnsImageParts(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("image-bytes"))
	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{
						{"text": "here you go"},
						{"inlineData": map[string]string{"mimeType": "image/png", "data": payload}},
					},
				},
			}},
		})
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "k", BaseURL: server.URL, Model: "test-image-model"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	parts, err := client.Generate(context.Background(), GenerateRequest{
		Parts:       []Part{TextPart("a mug"), ImagePart("image/jpeg", []byte{1, 2, 3})},
		AspectRatio: "16:9",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(gotPath, "test-image-model") {
		t.Fatalf("request path %q does not address the model", gotPath)
	}
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	data, mime, ok := parts[1].ImageBytes()
	if !ok || mime != "image/png" || string(data) != "image-bytes" {
		t.Fatalf("image part decoded to %q/%q/%v", data, mime, ok)
	}

	cfg, ok := gotBody["generationConfig"].(map[string]any)
	if !ok {
		t.Fatal("request missing generationConfig")
	}
	img, ok := cfg["imageConfig"].(map[string]any)
	if !ok || img["aspectRatio"] != "16:9" {
		t.Fatalf("aspect ratio not forwarded: %v", cfg)
	}
}

func TestGenerateSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exhausted"},
		})
	}))
	defer server.Close()

	client, _ := NewClient(Options{BaseURL: server.URL})
	_, err := client.Generate(context.Background(), GenerateRequest{Parts: []Part{TextPart("x")}})
	if err == nil || !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("err = %v, want quota message", err)
	}
}

func TestPremiumTierSelectsPremiumModel(t *testing.T) {
	client, _ := NewClient(Options{Model: "fast", PremiumModel: "best"})
	if got := client.Model(false); got != "fast" {
		t.Fatalf("standard model = %s", got)
	}
	if got := client.Model(true); got != "best" {
		t.Fatalf("premium model = %s", got)
	}
}

func TestImageBytesRejectsNonImages(t *testing.T) {
	if _, _, ok := TextPart("hello").ImageBytes(); ok {
		t.Fatal("text part decoded as image")
	}
	part := Part{InlineData: &InlineData{MimeType: "video/mp4", Data: base64.StdEncoding.EncodeToString([]byte("x"))}}
	if _, _, ok := part.ImageBytes(); ok {
		t.Fatal("video part decoded as image")
	}
}
