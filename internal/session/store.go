// Package session keeps authenticated sessions in Redis. The browser only
// holds a signed token naming its session, so destroying the Redis entry ends
// the session at once.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
)

// ErrNoSession is returned for missing, expired, revoked or forged sessions.
var ErrNoSession = errors.New("session not found")

type Session struct {
	ID        string
	Identity  domain.Identity
	ExpiresAt time.Time
}

type record struct {
	Identity  domain.Identity `json:"identity"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type Store struct {
	rdb      *redis.Client
	secret   []byte
	lifetime time.Duration
}

func NewStore(rdb *redis.Client, secret string, lifetime time.Duration) *Store {
	return &Store{
		rdb:      rdb,
		secret:   []byte(secret),
		lifetime: lifetime,
	}
}

func sessionKey(id string) string {
	return "session:" + id
}

func userSessionsKey(userID int64) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

// Create opens a session for identity and returns the token to put in the
// cookie. The session ends after the configured lifetime whatever the activity.
func (s *Store) Create(ctx context.Context, identity domain.Identity) (string, *Session, error) {
	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		Identity:  identity,
		ExpiresAt: now.Add(s.lifetime),
	}

	data, err := json.Marshal(record{Identity: identity, ExpiresAt: sess.ExpiresAt})
	if err != nil {
		return "", nil, err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), data, s.lifetime)
	pipe.SAdd(ctx, userSessionsKey(identity.UserID), sess.ID)
	// the newest session always expires last, so the index outlives every member
	pipe.Expire(ctx, userSessionsKey(identity.UserID), s.lifetime)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   strconv.FormatInt(identity.UserID, 10),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	})
	ss, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}

	return ss, sess, nil
}

// Lookup returns the live session token refers to.
func (s *Store) Lookup(ctx context.Context, token string) (*Session, error) {
	sessionID, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	data, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &Session{
		ID:        sessionID,
		Identity:  rec.Identity,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// Destroy ends the session token refers to. Unknown sessions are ignored.
func (s *Store) Destroy(ctx context.Context, token string) error {
	sess, err := s.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(sess.ID))
	pipe.SRem(ctx, userSessionsKey(sess.Identity.UserID), sess.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// RevokeUser ends every session of userID.
func (s *Store) RevokeUser(ctx context.Context, userID int64) error {
	ids, err := s.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}

	return nil
}

func (s *Store) parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || claims.ID == "" {
		return "", ErrNoSession
	}

	return claims.ID, nil
}
