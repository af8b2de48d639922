package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces session keys in Valkey to avoid collisions.
const keyPrefix = "fanhub:session:"

// ValkeyStore stores sessions as JSON in Valkey with automatic TTL expiry.
type ValkeyStore struct {
	client *redis.Client
	cookie cookieJar
}

var _ Store = (*ValkeyStore)(nil)

// NewValkeyStore creates a session store backed by the given Valkey client.
// When secure is true, cookies are only sent over HTTPS.
func NewValkeyStore(client *redis.Client, secure bool, ttl time.Duration) *ValkeyStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ValkeyStore{client: client, cookie: cookieJar{secure: secure, ttl: ttl}}
}

// Create implements Store.
func (s *ValkeyStore) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.CreatedAt = time.Now()
	if err := s.put(ctx, id, data); err != nil {
		return "", err
	}

	s.cookie.set(w, id)
	return id, nil
}

// Get implements Store.
func (s *ValkeyStore) Get(ctx context.Context, r *http.Request) (string, *Data, error) {
	id := requestID(r)
	if id == "" {
		return "", nil, nil // No cookie = no session (not an error)
	}

	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", nil, nil // Session expired or doesn't exist
	}
	if err != nil {
		return "", nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return "", nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return id, &data, nil
}

// Save implements Store.
func (s *ValkeyStore) Save(ctx context.Context, id string, data *Data) error {
	if id == "" {
		return fmt.Errorf("session save: empty id")
	}
	return s.put(ctx, id, data)
}

// Destroy implements Store.
func (s *ValkeyStore) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := requestID(r)
	if id == "" {
		return nil // No cookie, nothing to destroy
	}

	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	s.cookie.clear(w)
	return nil
}

func (s *ValkeyStore) put(ctx context.Context, id string, data *Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, payload, s.cookie.ttl).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}
