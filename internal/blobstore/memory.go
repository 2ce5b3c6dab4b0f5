package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

type memoryObject struct {
	data      []byte
	metadata  []byte
	expiresAt time.Time // zero means no expiry
}

func (o *memoryObject) expired(now time.Time) bool {
	return !o.expiresAt.IsZero() && now.After(o.expiresAt)
}

// MemoryStore is an in-memory Store used in tests and as a throwaway dev
// backend. TTLs are enforced lazily on read.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*memoryObject

	// now is swappable so tests can step time past a TTL.
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]*memoryObject),
		now:     time.Now,
	}
}

// SetClock replaces the time source. Test helper.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	obj := &memoryObject{data: data, metadata: opts.Metadata}

	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.TTL > 0 {
		obj.expiresAt = s.now().Add(opts.TTL)
	}
	s.objects[key] = obj
	return nil
}

func (s *MemoryStore) lookup(key string) (*memoryObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok || obj.expired(s.now()) {
		return nil, common.ErrorNotFound
	}
	return obj, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, _, err := s.GetWithMetadata(ctx, key)
	return rc, err
}

func (s *MemoryStore) GetWithMetadata(ctx context.Context, key string) (io.ReadCloser, []byte, error) {
	obj, err := s.lookup(key)
	if err != nil {
		return nil, nil, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.metadata, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var keys []string
	for k, obj := range s.objects {
		if strings.HasPrefix(k, prefix) && !obj.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *MemoryStore) Close() error { return nil }
