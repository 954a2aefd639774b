package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	supa "github.com/supabase-community/storage-go"
)

// SupabaseStore uploads assets to a Supabase storage bucket and exposes the
// public object URL as the stable content reference.
type SupabaseStore struct {
	client  *supa.Client
	bucket  string
	baseURL string
}

// NewSupabaseStore configures a store against the given project URL and
// service-role key.
func NewSupabaseStore(projectURL, serviceKey, bucket string) (*SupabaseStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(projectURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("storage: supabase url is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}
	client := supa.NewClient(baseURL+"/storage/v1", serviceKey, nil)
	return &SupabaseStore{client: client, bucket: bucket, baseURL: baseURL}, nil
}

// Upload writes the object and returns its public URL.
func (s *SupabaseStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	upsert := false
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), supa.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload %s: %w", key, err)
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key), nil
}

var _ Store = (*SupabaseStore)(nil)
