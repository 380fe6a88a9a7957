package sales

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceIsStrictlyIncreasing(t *testing.T) {
	seq := NewSequence(41)
	assert.Equal(t, int64(42), seq.Next())
	assert.Equal(t, int64(43), seq.Next())
}

func TestSequenceConcurrentCallsAreUnique(t *testing.T) {
	seq := NewSequence(0)
	var (
		mu   sync.Mutex
		seen = map[int64]struct{}{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := seq.Next()
			mu.Lock()
			seen[n] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestSnowflakeNumberer(t *testing.T) {
	n, err := NewSnowflakeNumberer(3)
	require.NoError(t, err)

	prev := n.Next()
	for i := 0; i < 100; i++ {
		next := n.Next()
		require.Greater(t, next, prev)
		prev = next
	}

	_, err = NewSnowflakeNumberer(4096)
	assert.Error(t, err)
}
