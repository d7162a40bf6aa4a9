package cache

import (
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func BenchmarkCache(b *testing.B) {
	c := NewWithTTL[*time.Time](time.Millisecond*100, func(key string) (*time.Time, error) {
		t := time.Now()
		return &t, nil
	})

	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < b.N; i++ {
		_, _ = c.Load(strconv.Itoa(r.Intn(50)))
	}
}

func TestCache(t *testing.T) {
	ttl := time.Millisecond * 10
	c := NewWithTTL[*time.Time](ttl, func(key string) (*time.Time, error) {
		t := time.Now()
		return &t, nil
	})

	wg := new(sync.WaitGroup)

	go func() {
		c.Clean()
	}()

	for n := 0; n < 50; n++ {
		wg.Add(1)
		go func() {
			r := rand.New(rand.NewSource(time.Now().UnixNano()))

			for i := 0; i < 100000; i++ {
				res, err := c.Load(strconv.Itoa(r.Intn(1000)))

				assert.NoError(t, err)
				assert.NotNil(t, res)
				assert.Less(t, time.Since(*res), ttl*time.Duration(2))
			}
			wg.Done()
		}()
	}

	wg.Wait()
}

func TestCache_FailedLoadNotStored(t *testing.T) {
	var calls atomic.Int32
	var fail atomic.Bool

	fail.Store(true)

	c := NewWithTTL[string](time.Minute, func(key string) (string, error) {
		calls.Add(1)

		if fail.Load() {
			return "", errors.New("load failed")
		}

		return "value-" + key, nil
	})

	_, err := c.Load("k")
	require.Error(t, err)

	fail.Store(false)

	v, err := c.Load("k")
	require.NoError(t, err)
	require.Equal(t, "value-k", v)
	require.EqualValues(t, 2, calls.Load())

	// cached now
	_, err = c.Load("k")
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())
}
