package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	redisadapter "github.com/robertarktes/studio-bookings/internal/adapters/redis"
)

const (
	MinKeyLength = 16
	MaxKeyLength = 255
)

// Backend stores replayable responses. The redis adapter is the production
// implementation.
type Backend interface {
	Get(ctx context.Context, key string) (*redisadapter.IdempResponse, error)
	Set(ctx context.Context, key string, resp redisadapter.IdempResponse, ttl time.Duration) error
}

type Idempotency struct {
	backend Backend
	ttl     time.Duration
}

func NewIdempotency(backend Backend, ttl time.Duration) *Idempotency {
	return &Idempotency{backend: backend, ttl: ttl}
}

type Response struct {
	Status      int
	ContentType string
	Result      []byte
}

func ValidKey(key string) bool {
	return len(key) >= MinKeyLength && len(key) <= MaxKeyLength
}

// Scope namespaces a client key by caller and route so two users cannot
// replay each other's responses.
func Scope(actorID, method, path, key string) string {
	return actorID + ":" + method + ":" + path + ":" + key
}

// Get returns the stored response for key, or nil when none exists.
func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.backend.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "idempotency lookup")
	}
	if stored == nil {
		return nil, nil
	}
	return &Response{Status: stored.Status, ContentType: stored.ContentType, Result: stored.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	err := i.backend.Set(ctx, key, redisadapter.IdempResponse{
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Result:      resp.Result,
	}, i.ttl)
	return errors.Wrap(err, "idempotency store")
}

// MemoryBackend keeps responses in process. It backs local runs without Redis
// and handler tests.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	resp    redisadapter.IdempResponse
	expires time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (*redisadapter.IdempResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, nil
	}
	resp := e.resp
	return &resp, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, resp redisadapter.IdempResponse, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{resp: resp, expires: m.now().Add(ttl)}
	return nil
}
