package throttle

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	tbl := NewTable()
	require.NotNil(t, tbl)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, 0, tbl.Count("10.0.0.1"))
	assert.False(t, tbl.Has("10.0.0.1"))
}

func TestTable_Increment(t *testing.T) {
	tbl := NewTable()

	t.Run("first increment creates the entry at one", func(t *testing.T) {
		assert.Equal(t, 1, tbl.Increment("10.0.0.1"))
		assert.True(t, tbl.Has("10.0.0.1"))
	})

	t.Run("repeated increments count up", func(t *testing.T) {
		assert.Equal(t, 2, tbl.Increment("10.0.0.1"))
		assert.Equal(t, 3, tbl.Increment("10.0.0.1"))
	})

	t.Run("counts are tracked per address", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			tbl.Increment("10.0.0.5")
		}
		tbl.Increment("10.0.0.6")

		assert.Equal(t, 5, tbl.Count("10.0.0.5"))
		assert.Equal(t, 1, tbl.Count("10.0.0.6"))
	})
}

func TestTable_Decrement(t *testing.T) {
	tbl := NewTable()
	tbl.Increment("10.0.0.1")
	tbl.Increment("10.0.0.1")

	t.Run("decrement lowers the count", func(t *testing.T) {
		tbl.Decrement("10.0.0.1")
		assert.Equal(t, 1, tbl.Count("10.0.0.1"))
	})

	t.Run("reaching zero removes the entry", func(t *testing.T) {
		tbl.Decrement("10.0.0.1")
		assert.False(t, tbl.Has("10.0.0.1"))
	})

	t.Run("decrementing an absent address is a no-op", func(t *testing.T) {
		tbl.Decrement("10.0.0.1")
		assert.Equal(t, 0, tbl.Count("10.0.0.1"))
		assert.False(t, tbl.Has("10.0.0.1"))
	})
}

func TestTable_Increment_concurrent(t *testing.T) {
	tbl := NewTable()
	const n = 300

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			tbl.Increment("10.0.0.1")
		}()
	}
	wg.Wait()

	assert.Equal(t, n, tbl.Count("10.0.0.1"))
}

func TestTable_SweepAbove(t *testing.T) {
	tbl := NewTable()
	for i := 0; i < 11; i++ {
		tbl.Increment("10.0.0.1")
	}
	for i := 0; i < 15; i++ {
		tbl.Increment("10.0.0.2")
	}
	for i := 0; i < 10; i++ {
		tbl.Increment("10.0.0.3")
	}
	tbl.Increment("10.0.0.4")

	marked := tbl.SweepAbove(10)
	sort.Strings(marked)

	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, marked)
	assert.False(t, tbl.Has("10.0.0.1"))
	assert.False(t, tbl.Has("10.0.0.2"))
	assert.Equal(t, 10, tbl.Count("10.0.0.3"))
	assert.Equal(t, 1, tbl.Count("10.0.0.4"))

	t.Run("sweep with nothing above threshold returns empty", func(t *testing.T) {
		assert.Empty(t, tbl.SweepAbove(10))
		assert.Equal(t, 2, tbl.Len())
	})
}

func TestTable_Reset(t *testing.T) {
	tbl := NewTable()
	tbl.Increment("10.0.0.1")
	tbl.Increment("10.0.0.2")

	tbl.Reset()

	assert.Equal(t, 0, tbl.Len())
	assert.False(t, tbl.Has("10.0.0.1"))
}
