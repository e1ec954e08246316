package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
)

// DefaultSessionTTL bounds how long an idle session is kept.
const DefaultSessionTTL = 24 * time.Hour

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = fmt.Errorf("conversation: unknown session: %w", apperr.ErrNotFound)

// SessionStore persists session state between turns.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Save(ctx context.Context, s State) error
}

// MemorySessionStore keeps sessions in process memory. Sessions do not expire.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]State
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]State)}
}

var _ SessionStore = (*MemorySessionStore)(nil)

func (m *MemorySessionStore) Load(_ context.Context, sessionID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return State{}, ErrSessionNotFound
	}
	return s.clone(), nil
}

func (m *MemorySessionStore) Save(_ context.Context, s State) error {
	m.mu.Lock()
	m.sessions[s.SessionID] = s.clone()
	m.mu.Unlock()
	return nil
}

// RedisSessionStore stores each session as a JSON value with a TTL that is
// refreshed on every save.
type RedisSessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("scheduler.internal.conversation.sessions"),
	}
}

var _ SessionStore = (*RedisSessionStore)(nil)

func (r *RedisSessionStore) Save(ctx context.Context, s State) error {
	ctx, span := r.tracer.Start(ctx, "conversation.save_session")
	defer span.End()

	data, err := json.Marshal(s)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}
	if err := r.redis.Set(ctx, sessionKey(s.SessionID), data, r.ttl).Err(); err != nil {
		span.RecordError(err)
		return apperr.Persistence("conversation: save session", err)
	}
	return nil
}

func (r *RedisSessionStore) Load(ctx context.Context, sessionID string) (State, error) {
	ctx, span := r.tracer.Start(ctx, "conversation.load_session")
	defer span.End()

	data, err := r.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, ErrSessionNotFound
		}
		span.RecordError(err)
		return State{}, apperr.Persistence("conversation: load session", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		span.RecordError(err)
		return State{}, apperr.Persistence("conversation: decode session", err)
	}
	return s, nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}
