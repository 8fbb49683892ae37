package utils

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySetNoDuplicates(t *testing.T) {
	s := NewKeySet()

	assert.True(t, s.Add("Bosch  KGN 36"), "first Add should return true")
	assert.False(t, s.Add(" Bosch KGN 36 "), "whitespace variants are the same key")
	assert.True(t, s.Contains("Bosch KGN 36"))
	assert.Equal(t, 1, s.Size())
}

func TestKeySetConcurrency(t *testing.T) {
	s := NewKeySet()
	var added int64

	pool := NewWorkerPool(10)
	for i := 0; i < 100; i++ {
		pool.Submit("add", func() error {
			if s.Add("same") {
				atomic.AddInt64(&added, 1)
			}
			return nil
		})
	}
	require.NoError(t, pool.Wait())

	assert.Equal(t, int64(1), added, "expected exactly 1 successful add")
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2)
	var running, peak int64

	for i := 0; i < 8; i++ {
		pool.Submit("job", func() error {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return nil
		})
	}
	require.NoError(t, pool.Wait())
	assert.LessOrEqual(t, peak, int64(2))
}

func TestWorkerPoolCollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	pool := NewWorkerPool(3)
	pool.Submit("ok", func() error { return nil })
	pool.Submit("Refrigerator", func() error { return boom })
	pool.Submit("Stirrer", func() error { panic("bad row") })

	err := pool.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Refrigerator")
	assert.Contains(t, err.Error(), "Stirrer: panic: bad row")
}
