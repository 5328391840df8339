package redis

// Package redis provides the Redis-backed session store.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seqdepot/seqdepot/internal/domain/model"
	"github.com/seqdepot/seqdepot/internal/ports"
)

// SessionStore is a Redis-based session store for production use.
// It handles TTL semantics automatically based on session ExpiresAt.
//
// Besides the per-session key, a per-user set indexes the session IDs
// belonging to each user so authorization changes can fan out to every
// live session without scanning the keyspace.
type SessionStore struct {
	client     redis.UniversalClient
	prefix     string
	userPrefix string
}

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{
		client:     client,
		prefix:     "session:",
		userPrefix: "session_user:",
	}
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{
		client:     client,
		prefix:     prefix,
		userPrefix: prefix + "user:",
	}
}

func (s *SessionStore) Save(ctx context.Context, sess model.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		// Session is already expired, don't save it
		return errors.New("session is expired")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.prefix+sess.ID, data, ttl)
	if sess.UserID != "" {
		userKey := s.userPrefix + sess.UserID
		pipe.SAdd(ctx, userKey, sess.ID)
		// Keep the index alive at least as long as its newest session.
		pipe.Expire(ctx, userKey, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) Get(ctx context.Context, id string) (model.Session, error) {
	if id == "" {
		return model.Session{}, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess model.Session
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		return model.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}

	// Double-check expiration (Redis TTL should handle this, but be defensive)
	if time.Now().After(sess.ExpiresAt) {
		// Clean up expired session; if cleanup fails bubble the error up.
		if deleteErr := s.Delete(ctx, id); deleteErr != nil {
			return model.Session{}, fmt.Errorf("cleanup expired session: %w", deleteErr)
		}
		return model.Session{}, ErrNotFound
	}

	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil // Nothing to delete
	}

	sess, err := s.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.prefix+id)
	if sess.UserID != "" {
		pipe.SRem(ctx, s.userPrefix+sess.UserID, id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteForUser removes every live session belonging to the user and
// returns how many were removed.
func (s *SessionStore) DeleteForUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}

	userKey := s.userPrefix + userID
	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers: %w", err)
	}

	pipe := s.client.TxPipeline()
	dels := make([]*redis.IntCmd, 0, len(ids))
	for _, id := range ids {
		dels = append(dels, pipe.Del(ctx, s.prefix+id))
	}
	pipe.Del(ctx, userKey)
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, err
	}

	removed := 0
	for _, cmd := range dels {
		removed += int(cmd.Val())
	}
	return removed, nil
}

// UpdateAuthorizationForUser rewrites the authorization fields of every
// live session belonging to the user and returns how many were rewritten.
// The stored permissions are replaced verbatim with the ones in update.
// Each session keeps its remaining TTL.
func (s *SessionStore) UpdateAuthorizationForUser(ctx context.Context, userID string, update model.AuthorizationUpdate) (int, error) {
	if userID == "" {
		return 0, nil
	}

	ids, err := s.client.SMembers(ctx, s.userPrefix+userID).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers: %w", err)
	}

	updated := 0
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Expired between the index read and now
			continue
		}
		if err != nil {
			return updated, err
		}

		sess.Administrator = update.Administrator
		sess.Groups = append([]string(nil), update.Groups...)
		sess.Permissions = model.ReplacePermissions(sess.Permissions, update.Permissions)

		if saveErr := s.Save(ctx, sess); saveErr != nil {
			return updated, fmt.Errorf("update session %s: %w", id, saveErr)
		}
		updated++
	}
	return updated, nil
}

// ErrNotFound is returned when a session is not found.
type notFoundError struct{}

func (notFoundError) Error() string { return "session not found" }

var ErrNotFound error = notFoundError{}

var _ ports.SessionStore = (*SessionStore)(nil)
