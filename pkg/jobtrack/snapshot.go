package jobtrack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"
)

// MemSnapshotStore keeps the snapshot in memory; tracking then survives
// nothing, which is exactly what tests and throwaway scripts want.
type MemSnapshotStore struct {
	mu   sync.Mutex
	blob []byte
}

// NewMemSnapshotStore constructs an empty store.
func NewMemSnapshotStore() *MemSnapshotStore {
	return &MemSnapshotStore{}
}

func (s *MemSnapshotStore) Load(ctx context.Context) ([]ClientJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decodeSnapshot(s.blob)
}

func (s *MemSnapshotStore) Save(ctx context.Context, jobs []ClientJob) error {
	blob, err := json.Marshal(jobs)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.blob = blob
	s.mu.Unlock()
	return nil
}

func (s *MemSnapshotStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.blob = nil
	s.mu.Unlock()
	return nil
}

// FileSnapshotStore persists the snapshot as one JSON file under a fixed
// path, which is all a single-user client needs.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore stores the blob at path.
func NewFileSnapshotStore(path string) (*FileSnapshotStore, error) {
	if path == "" {
		return nil, errors.New("jobtrack: snapshot path is required")
	}
	return &FileSnapshotStore{path: path}, nil
}

func (s *FileSnapshotStore) Load(ctx context.Context) ([]ClientJob, error) {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return decodeSnapshot(blob)
}

func (s *FileSnapshotStore) Save(ctx context.Context, jobs []ClientJob) error {
	blob, err := json.Marshal(jobs)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, blob, 0o600)
}

func (s *FileSnapshotStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RedisSnapshotStore keeps the snapshot under one redis key so tracking
// survives client restarts even when local disk does not.
type RedisSnapshotStore struct {
	client *redis.Client
	key    string
}

// NewRedisSnapshotStore stores the blob under key.
func NewRedisSnapshotStore(client *redis.Client, key string) *RedisSnapshotStore {
	if key == "" {
		key = "jobtrack:snapshot"
	}
	return &RedisSnapshotStore{client: client, key: key}
}

func (s *RedisSnapshotStore) Load(ctx context.Context) ([]ClientJob, error) {
	blob, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("jobtrack: snapshot load: %w", err)
	}
	return decodeSnapshot(blob)
}

func (s *RedisSnapshotStore) Save(ctx context.Context, jobs []ClientJob) error {
	blob, err := json.Marshal(jobs)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, blob, 0).Err()
}

func (s *RedisSnapshotStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func decodeSnapshot(blob []byte) ([]ClientJob, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	var jobs []ClientJob
	if err := json.Unmarshal(blob, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

var (
	_ SnapshotStore = (*MemSnapshotStore)(nil)
	_ SnapshotStore = (*FileSnapshotStore)(nil)
	_ SnapshotStore = (*RedisSnapshotStore)(nil)
)
