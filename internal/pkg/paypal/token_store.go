package paypal

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/match3rewards/payout-relay/internal/pkg/cache"
)

const tokenCacheKey = "paypal:oauth:token"

// CachedToken is the persisted shape of an access token. ExpiresAt is an
// absolute unix timestamp so cached tokens stay valid across restarts.
type CachedToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Valid reports whether the token can still be used, honoring the expiry
// safety margin.
func (t CachedToken) Valid(now time.Time, skew time.Duration) bool {
	return t.AccessToken != "" && t.ExpiresAt > now.Add(skew).Unix()
}

// TokenStore persists the provider access token between calls. Implementations
// must treat corrupted entries as a cache miss, never as a fatal error.
type TokenStore interface {
	Load() (CachedToken, bool)
	Save(token CachedToken) error
	Clear() error
}

type redisTokenStore struct{}

// NewRedisTokenStore returns a TokenStore backed by the shared Redis cache.
func NewRedisTokenStore() TokenStore {
	return &redisTokenStore{}
}

func (s *redisTokenStore) Load() (CachedToken, bool) {
	raw, err := cache.Get(tokenCacheKey)
	if err != nil {
		return CachedToken{}, false
	}
	var tok CachedToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil || tok.AccessToken == "" {
		// Corrupted cache entry counts as a miss.
		return CachedToken{}, false
	}
	return tok, true
}

func (s *redisTokenStore) Save(token CachedToken) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	ttl := time.Until(time.Unix(token.ExpiresAt, 0))
	if ttl <= 0 {
		return nil
	}
	return cache.Set(tokenCacheKey, raw, ttl)
}

func (s *redisTokenStore) Clear() error {
	return cache.Delete(tokenCacheKey)
}

// MemoryTokenStore keeps the token in process memory. Used by tests and
// single-binary deployments without a cache server.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token CachedToken
	set   bool
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load() (CachedToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.set
}

func (s *MemoryTokenStore) Save(token CachedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = CachedToken{}
	s.set = false
	return nil
}
