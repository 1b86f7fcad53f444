package session

import (
	"bytes"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vovarama1992/file_changer/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestPutGetRoundTrip(t *testing.T) {
	s := NewMemoryStore(time.Minute)

	handle, err := s.Put([]byte("%PDF"), "converted.pdf")
	require.NoError(t, err)
	assert.Len(t, handle, HandleLen)
	assert.Regexp(t, urlSafe, handle)

	got, err := s.Get(handle)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), got.Data)
	assert.Equal(t, "converted.pdf", got.Filename)
	assert.False(t, got.Consumed)
	assert.Equal(t, 4, got.Size())

	// Get не расходует сессию
	_, err = s.Get(handle)
	assert.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestTakeIsOneShot(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	handle, err := s.Put([]byte("pdf"), "converted.pdf")
	require.NoError(t, err)

	got, err := s.Take(handle)
	require.NoError(t, err)
	assert.True(t, got.Consumed)
	assert.Equal(t, []byte("pdf"), got.Data)

	_, err = s.Take(handle)
	assert.True(t, apperr.IsNotFound(err))
	_, err = s.Get(handle)
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, 0, s.Len())
}

func TestConcurrentTakeSucceedsOnce(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	handle, err := s.Put([]byte("pdf"), "converted.pdf")
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Take(handle); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestDelete(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	handle, err := s.Put([]byte("pdf"), "converted.pdf")
	require.NoError(t, err)

	require.NoError(t, s.Delete(handle))
	assert.True(t, apperr.IsNotFound(s.Delete(handle)))
	_, err = s.Take(handle)
	assert.True(t, apperr.IsNotFound(err))
	assert.True(t, apperr.IsNotFound(s.Delete("never-issued")))
}

func TestExpiredSessionIsNotFoundWithoutSweep(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(10*time.Minute, WithClock(clock.Now))
	handle, err := s.Put([]byte("pdf"), "converted.pdf")
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	_, err = s.Get(handle)
	require.NoError(t, err, "still visible at exactly the ttl")

	clock.Advance(time.Second)
	_, err = s.Take(handle)
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, 0, s.Len(), "lazy expiry drops the entry")
}

func TestExpiryWithRealClock(t *testing.T) {
	s := NewMemoryStore(20 * time.Millisecond)
	handle, err := s.Put([]byte("pdf"), "converted.pdf")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	_, err = s.Take(handle)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(time.Minute, WithClock(clock.Now))

	old, err := s.Put([]byte("a"), "a.pdf")
	require.NoError(t, err)
	clock.Advance(45 * time.Second)
	fresh, err := s.Put([]byte("b"), "b.pdf")
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
	_, err = s.Get(old)
	assert.True(t, apperr.IsNotFound(err))
	_, err = s.Get(fresh)
	assert.NoError(t, err)

	assert.Equal(t, 0, s.Sweep())
}

func TestLenSkipsExpiredBeforeSweep(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(time.Minute, WithClock(clock.Now))

	_, err := s.Put([]byte("a"), "a.pdf")
	require.NoError(t, err)
	clock.Advance(45 * time.Second)
	_, err = s.Put([]byte("b"), "b.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, s.Len())
	// Len ничего не удаляет, это работа Sweep
	assert.Len(t, s.entries, 2)

	clock.Advance(time.Minute)
	assert.Equal(t, 0, s.Len())
}

func TestSweepDropsNilEntriesAndKeepsGoing(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(time.Minute, WithClock(clock.Now))
	for range 3 {
		_, err := s.Put([]byte("x"), "x.pdf")
		require.NoError(t, err)
	}
	s.entries["broken"] = nil
	clock.Advance(2 * time.Minute)

	assert.Equal(t, 4, s.Sweep())
	assert.Equal(t, 0, s.Len())
}

func TestConcurrentPutsProduceDistinctHandles(t *testing.T) {
	const (
		workers = 16
		perG    = 640
	)
	s := NewMemoryStore(time.Hour)

	handles := make([][]string, workers)
	var wg sync.WaitGroup
	for g := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perG {
				h, err := s.Put(nil, "x.pdf")
				if err != nil {
					t.Error(err)
					return
				}
				handles[g] = append(handles[g], h)
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers*perG)
	for _, hs := range handles {
		for _, h := range hs {
			_, dup := seen[h]
			require.False(t, dup, "duplicate handle %s", h)
			seen[h] = struct{}{}
		}
	}
	assert.GreaterOrEqual(t, len(seen), 10000)
	assert.Equal(t, len(seen), s.Len())
}

// repeatReader hands out the same block n times, then distinct bytes.
type repeatReader struct {
	n     int
	calls int
}

func (r *repeatReader) Read(p []byte) (int, error) {
	fill := byte(0xAA)
	if r.calls >= r.n {
		fill = byte(r.calls)
	}
	r.calls++
	copy(p, bytes.Repeat([]byte{fill}, len(p)))
	return len(p), nil
}

func TestPutRegeneratesOnCollision(t *testing.T) {
	rr := &repeatReader{n: 2}
	s := NewMemoryStore(time.Minute, WithRandom(rr))

	first, err := s.Put([]byte("a"), "a.pdf")
	require.NoError(t, err)
	second, err := s.Put([]byte("b"), "b.pdf")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 3, rr.calls, "second put retried once")

	got, err := s.Get(first)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got.Data, "first session was not overwritten")
}

func TestPutFailsWhenRandomnessKeepsColliding(t *testing.T) {
	s := NewMemoryStore(time.Minute, WithRandom(&repeatReader{n: 100}))
	_, err := s.Put([]byte("a"), "a.pdf")
	require.NoError(t, err)

	_, err = s.Put([]byte("b"), "b.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, errHandleExhausted)
	assert.Equal(t, 1, s.Len())
}

func TestMaxSessionsEvictsOldest(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(time.Hour, WithClock(clock.Now), WithMaxSessions(2))

	first, err := s.Put([]byte("1"), "1.pdf")
	require.NoError(t, err)
	clock.Advance(time.Second)
	second, err := s.Put([]byte("2"), "2.pdf")
	require.NoError(t, err)
	clock.Advance(time.Second)
	third, err := s.Put([]byte("3"), "3.pdf")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	_, err = s.Get(first)
	assert.True(t, apperr.IsNotFound(err))
	_, err = s.Get(second)
	assert.NoError(t, err)
	_, err = s.Get(third)
	assert.NoError(t, err)
}
