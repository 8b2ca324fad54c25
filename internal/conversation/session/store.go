// Package session holds web chat sessions in Redis: an opaque token maps to a
// case for the lifetime of the conversation. WhatsApp needs none of this, the
// phone number is the identity there.
package session

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"claims_intake_backend/platform/apperr"
	"claims_intake_backend/platform/config"
)

const keyPrefix = "chat_session:"

// Store issues and resolves web chat session tokens.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

type storeConfig interface {
	config.RedisConfig
	config.BotConfig
}

func NewStore(cfg storeConfig) (*Store, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Store{
		rdb: redis.NewClient(opt),
		ttl: cfg.GetSessionTTL(),
	}, nil
}

// Create issues a fresh token bound to the given case.
func (s *Store) Create(ctx context.Context, caseID uuid.UUID) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.rdb.Set(ctx, keyPrefix+token, caseID.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve maps a token back to its case and slides the expiry forward, so an
// active conversation never logs itself out mid-flow.
func (s *Store) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, apperr.SessionInvalid("missing session token")
	}

	val, err := s.rdb.Get(ctx, keyPrefix+token).Result()
	if err == redis.Nil {
		return uuid.Nil, apperr.SessionInvalid("unknown or expired session")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("load session: %w", err)
	}

	caseID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, apperr.SessionInvalid("corrupt session entry")
	}

	s.rdb.Expire(ctx, keyPrefix+token, s.ttl)
	return caseID, nil
}

// Drop deletes a session, ending the web conversation.
func (s *Store) Drop(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, keyPrefix+token).Err()
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}
