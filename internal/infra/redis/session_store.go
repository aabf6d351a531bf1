package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"clip-trivia-service/internal/app"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions themselves live in a local map; their state is only meaningful
//     in this process.
//   - Redis holds a reservation key per code (SETNX), so a code that is still
//     marked live is never handed out twice. The key doubles as a liveness
//     marker for operators.
//   - Redis failures are logged and do not block the game.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[int]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[int]*app.Session),
	}
}

func (s *SessionStore) Insert(code int, session *app.Session) bool {
	if _, held := s.Get(code); held {
		return false
	}
	// Redis round trips stay outside mu so polls on other games never wait on them.
	reserved, err := s.client.SetNX(context.Background(), s.key(code), "1", s.ttl).Result()
	if err != nil {
		log.Warn().Err(err).Int("code", code).Msg("redis code reservation failed")
	} else if !reserved {
		return false
	}

	s.mu.Lock()
	if _, ok := s.sessions[code]; ok {
		s.mu.Unlock()
		if reserved {
			s.release(code)
		}
		return false
	}
	s.sessions[code] = session
	s.mu.Unlock()
	return true
}

func (s *SessionStore) Get(code int) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

func (s *SessionStore) Delete(code int, session *app.Session) {
	s.mu.Lock()
	current, ok := s.sessions[code]
	if !ok || current != session {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, code)
	s.mu.Unlock()

	s.release(code)
}

func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

func (s *SessionStore) release(code int) {
	if err := s.client.Del(context.Background(), s.key(code)).Err(); err != nil {
		log.Warn().Err(err).Int("code", code).Msg("redis code release failed")
	}
}

func (s *SessionStore) key(code int) string {
	return "trivia:session:" + strconv.Itoa(code)
}
