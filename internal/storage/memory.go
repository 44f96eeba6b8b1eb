package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"
)

// Object is a stored blob in a MemoryStore.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore is an ObjectStore for local development and tests. The Fail*
// hooks let tests make individual calls fail.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object

	FailPut    func(key string) error
	FailDelete func(key string) error
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		objects: make(map[string]Object),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.FailPut != nil {
		if err := s.FailPut(key); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	s.mu.Lock()
	s.objects[key] = Object{Data: buf.Bytes(), ContentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if s.FailDelete != nil {
		if err := s.FailDelete(key); err != nil {
			return err
		}
	}

	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// SignedURL returns a fake signed URL carrying the expiry as a query param.
func (s *MemoryStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("sign %s: %w", key, ErrObjectNotFound)
	}

	q := url.Values{}
	q.Set("expires", fmt.Sprint(time.Now().Add(ttl).Unix()))
	return s.baseURL + "/" + key + "?" + q.Encode(), nil
}

// Get returns a stored object.
func (s *MemoryStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Keys lists stored keys in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ ObjectStore = (*MemoryStore)(nil)
