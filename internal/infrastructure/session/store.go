package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a session is unknown or expired
var ErrNotFound = errors.New("session not found")

// Credentials is what a session holds. Refreshes is the refresh count of
// the only token of the session that may still be refreshed.
type Credentials struct {
	DB        string `json:"db"`
	UID       int    `json:"uid"`
	Login     string `json:"login"`
	Secret    string `json:"secret"`
	Refreshes int    `json:"refreshes,omitempty"`
}

// Store persists sealed credentials by session id
type Store interface {
	Save(ctx context.Context, sid string, creds Credentials, ttl time.Duration) error
	Load(ctx context.Context, sid string) (Credentials, error)
	Delete(ctx context.Context, sid string) error
}

// NewID returns a fresh session id
func NewID() string {
	return uuid.NewString()
}

func seal(s *Sealer, creds Credentials) ([]byte, error) {
	raw, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}
	return s.Seal(raw)
}

func open(s *Sealer, sealed []byte) (Credentials, error) {
	raw, err := s.Open(sealed)
	if err != nil {
		return Credentials{}, err
	}
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrUnseal, err)
	}
	return creds, nil
}

// RedisStore keeps sessions in Redis under "session:<sid>"
type RedisStore struct {
	client    redis.UniversalClient
	sealer    *Sealer
	keyPrefix string
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(client redis.UniversalClient, sealer *Sealer) *RedisStore {
	return &RedisStore{client: client, sealer: sealer, keyPrefix: "session:"}
}

// Save stores creds for ttl
func (s *RedisStore) Save(ctx context.Context, sid string, creds Credentials, ttl time.Duration) error {
	sealed, err := seal(s.sealer, creds)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.keyPrefix+sid, sealed, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the credentials of sid
func (s *RedisStore) Load(ctx context.Context, sid string) (Credentials, error) {
	sealed, err := s.client.Get(ctx, s.keyPrefix+sid).Bytes()
	if errors.Is(err, redis.Nil) {
		return Credentials{}, ErrNotFound
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to load session: %w", err)
	}
	return open(s.sealer, sealed)
}

// Delete removes the session
func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.keyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)

type memoryEntry struct {
	sealed    []byte
	expiresAt time.Time
}

// MemoryStore keeps sealed sessions in process memory
type MemoryStore struct {
	mu      sync.Mutex
	sealer  *Sealer
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store
func NewMemoryStore(sealer *Sealer) *MemoryStore {
	return &MemoryStore{sealer: sealer, entries: map[string]memoryEntry{}, now: time.Now}
}

// Save stores creds for ttl
func (s *MemoryStore) Save(_ context.Context, sid string, creds Credentials, ttl time.Duration) error {
	sealed, err := seal(s.sealer, creds)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sid] = memoryEntry{sealed: sealed, expiresAt: s.now().Add(ttl)}
	return nil
}

// Load returns the credentials of sid
func (s *MemoryStore) Load(_ context.Context, sid string) (Credentials, error) {
	s.mu.Lock()
	entry, ok := s.lookup(sid)
	s.mu.Unlock()
	if !ok {
		return Credentials{}, ErrNotFound
	}
	return open(s.sealer, entry.sealed)
}

// Delete removes the session
func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sid)
	return nil
}

// lookup must be called with mu held
func (s *MemoryStore) lookup(sid string) (memoryEntry, bool) {
	entry, ok := s.entries[sid]
	if !ok {
		return memoryEntry{}, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, sid)
		return memoryEntry{}, false
	}
	return entry, true
}

var _ Store = (*MemoryStore)(nil)
