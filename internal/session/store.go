package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Vovarama1992/file_changer/internal/apperr"
)

const (
	// 32 random bytes, 43 URL-safe characters.
	handleBytes = 32
	HandleLen   = 43

	maxHandleAttempts = 4
)

var errHandleExhausted = errors.New("could not generate a unique session handle")

// MemoryStore keeps sessions in a map behind one mutex. Put, Get, Take,
// Delete and Sweep all take the same lock.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Session

	ttl         time.Duration
	maxSessions int
	now         func() time.Time
	random      io.Reader
}

type Option func(*MemoryStore)

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

func WithRandom(r io.Reader) Option {
	return func(s *MemoryStore) { s.random = r }
}

// WithMaxSessions caps live sessions; the oldest one is evicted to make room.
// Zero means no cap.
func WithMaxSessions(n int) Option {
	return func(s *MemoryStore) { s.maxSessions = n }
}

func NewMemoryStore(ttl time.Duration, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*Session),
		ttl:     ttl,
		now:     time.Now,
		random:  rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

func (s *MemoryStore) Put(data []byte, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, err := s.newHandle()
	if err != nil {
		return "", err
	}

	if s.maxSessions > 0 && len(s.entries) >= s.maxSessions {
		s.evictOldest()
	}

	s.entries[handle] = &Session{
		Handle:    handle,
		Data:      data,
		Filename:  filename,
		CreatedAt: s.now(),
	}
	return handle, nil
}

func (s *MemoryStore) Get(handle string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live(handle)
	if !ok {
		return Session{}, apperr.SessionNotFound()
	}
	return *sess, nil
}

func (s *MemoryStore) Take(handle string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live(handle)
	if !ok {
		return Session{}, apperr.SessionNotFound()
	}
	delete(s.entries, handle)

	out := *sess
	out.Consumed = true
	// запись из карты больше не держит PDF
	sess.Data = nil
	return out, nil
}

func (s *MemoryStore) Delete(handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(handle); !ok {
		return apperr.SessionNotFound()
	}
	delete(s.entries, handle)
	return nil
}

// Sweep removes every expired entry and reports how many went away.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for handle, sess := range s.entries {
		if sess == nil || s.expired(sess, now) {
			delete(s.entries, handle)
			removed++
		}
	}
	return removed
}

// Len counts live sessions only; expired entries still waiting for the
// sweeper are not reported.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, sess := range s.entries {
		if sess != nil && !s.expired(sess, now) {
			n++
		}
	}
	return n
}

// live looks up handle and lazily drops it when expired. Caller holds mu.
func (s *MemoryStore) live(handle string) (*Session, bool) {
	sess, ok := s.entries[handle]
	if !ok {
		return nil, false
	}
	if sess == nil || s.expired(sess, s.now()) {
		delete(s.entries, handle)
		return nil, false
	}
	return sess, true
}

func (s *MemoryStore) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.CreatedAt) > s.ttl
}

func (s *MemoryStore) evictOldest() {
	var (
		oldest string
		at     time.Time
	)
	for handle, sess := range s.entries {
		if sess == nil {
			delete(s.entries, handle)
			return
		}
		if oldest == "" || sess.CreatedAt.Before(at) {
			oldest, at = handle, sess.CreatedAt
		}
	}
	if oldest != "" {
		delete(s.entries, oldest)
	}
}

// newHandle draws random handles until one is free. Caller holds mu.
func (s *MemoryStore) newHandle() (string, error) {
	buf := make([]byte, handleBytes)
	for range maxHandleAttempts {
		if _, err := io.ReadFull(s.random, buf); err != nil {
			return "", apperr.Internal("generate session handle", err)
		}
		handle := base64.RawURLEncoding.EncodeToString(buf)
		if _, taken := s.entries[handle]; !taken {
			return handle, nil
		}
	}
	return "", apperr.Internal("generate session handle",
		fmt.Errorf("%w after %d attempts", errHandleExhausted, maxHandleAttempts))
}
