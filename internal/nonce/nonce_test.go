package nonce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestSource_FollowsClock(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1548630124, 0)}
	s := New(clock.Now)

	assert.Equal(t, int64(1548630124), s.Next())

	clock.Set(time.Unix(1548630130, 500))
	assert.Equal(t, int64(1548630130), s.Next())
	assert.Equal(t, int64(1548630130), s.Last())
}

func TestSource_NeverDecreases(t *testing.T) {
	clock := &fakeClock{now: time.Unix(2000, 0)}
	s := New(clock.Now)

	assert.Equal(t, int64(2000), s.Next())

	clock.Set(time.Unix(1990, 0))
	assert.Equal(t, int64(2000), s.Next())

	clock.Set(time.Unix(2001, 0))
	assert.Equal(t, int64(2001), s.Next())
}

func TestSource_Resync(t *testing.T) {
	tests := []struct {
		name  string
		clock int64
		want  int64
	}{
		{"clock behind", 1990, 2001},
		{"clock same second", 2000, 2001},
		{"clock ahead", 2010, 2010},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: time.Unix(2000, 0)}
			s := New(clock.Now)
			first := s.Next()

			clock.Set(time.Unix(tt.clock, 0))
			s.Resync()
			n := s.Next()
			assert.Equal(t, tt.want, n)
			assert.Greater(t, n, first)
			assert.GreaterOrEqual(t, s.Next(), n)
		})
	}
}

func TestSource_DefaultClock(t *testing.T) {
	s := New(nil)
	n := s.Next()
	assert.InDelta(t, time.Now().Unix(), n, 2)
}

func TestSource_Concurrent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := New(clock.Now)

	var wg sync.WaitGroup
	results := make(chan int64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i == 50 {
				clock.Set(time.Unix(1001, 0))
			}
			results <- s.Next()
		}(i)
	}
	wg.Wait()
	close(results)

	for n := range results {
		assert.GreaterOrEqual(t, n, int64(1000))
		assert.LessOrEqual(t, n, int64(1001))
	}
	assert.Equal(t, int64(1001), s.Next())
}
