package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestMemory(maxItems int) (*Memory, *clock) {
	c := &clock{t: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := NewMemory(time.Hour, maxItems)
	m.now = c.now
	return m, c
}

func TestMemory_SetIfAbsentAndGet(t *testing.T) {
	m, _ := newTestMemory(0)

	ok, err := m.SetIfAbsent(t.Context(), "btc", map[string]any{"price": 1})
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = m.SetIfAbsent(t.Context(), "btc", map[string]any{"price": 2})
	require.NoError(t, err)
	require.False(t, ok)

	var got map[string]float64
	ok, err = m.Get(t.Context(), "btc", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 1.0, got["price"], 1e-9)
}

func TestMemory_ExpireDefaultAndOnlyOnce(t *testing.T) {
	m, c := newTestMemory(0)
	_, _ = m.SetIfAbsent(t.Context(), "btc", "x")

	ttl, ok := m.TTLOf("btc")
	require.True(t, ok)
	require.Zero(t, ttl)

	set, err := m.Expire(t.Context(), "btc", 0, true)
	require.NoError(t, err)
	require.True(t, set)

	set, err = m.Expire(t.Context(), "btc", time.Minute, true)
	require.NoError(t, err)
	require.False(t, set)

	ttl, _ = m.TTLOf("btc")
	require.Equal(t, time.Hour, ttl)

	// Assert: the key is gone once the ttl elapses.
	c.t = c.t.Add(time.Hour)
	var v string
	found, err := m.Get(t.Context(), "btc", &v)
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemory_ExpireMissingKey(t *testing.T) {
	m, _ := newTestMemory(0)

	set, err := m.Expire(t.Context(), "nope", 0, true)
	require.NoError(t, err)
	require.False(t, set)
}

func TestMemory_GetDecodeError(t *testing.T) {
	m, _ := newTestMemory(0)
	_, _ = m.SetIfAbsent(t.Context(), "btc", "text")

	var dst struct{ Price float64 }
	_, err := m.Get(t.Context(), "btc", &dst)

	var serr *Error
	require.True(t, errors.As(err, &serr))
	require.Equal(t, "get", serr.Op)
}

func TestMemory_IncrDecr(t *testing.T) {
	m, _ := newTestMemory(0)

	n, err := m.Incr(t.Context(), "c")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	n, err = m.Decr(t.Context(), "c")
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
	n, err = m.Decr(t.Context(), "c")
	require.NoError(t, err)
	require.EqualValues(t, -1, n)

	_, _ = m.SetIfAbsent(t.Context(), "s", "abc")
	_, err = m.Incr(t.Context(), "s")
	require.Error(t, err)
}

func TestMemory_MaxItemsEvictsExpiredFirst(t *testing.T) {
	m, c := newTestMemory(2)

	_, _ = m.SetIfAbsent(t.Context(), "old", 1)
	_, _ = m.Expire(t.Context(), "old", time.Second, true)
	_, _ = m.SetIfAbsent(t.Context(), "keep", 2)
	c.t = c.t.Add(2 * time.Second)
	_, _ = m.SetIfAbsent(t.Context(), "new", 3)

	require.Len(t, m.items, 2)
	_, ok := m.items["old"]
	require.False(t, ok)
}

func TestMemory_MaxItemsNeverEvictsWrittenKey(t *testing.T) {
	for i := 0; i < 200; i++ {
		// Arrange
		m, _ := newTestMemory(1)
		_, _ = m.SetIfAbsent(t.Context(), "eth", 1)
		_, _ = m.Expire(t.Context(), "eth", 0, true)

		// Act
		ok, err := m.SetIfAbsent(t.Context(), "btc", 2)
		require.NoError(t, err)
		require.True(t, ok)

		// Assert
		var got int
		found, err := m.Get(t.Context(), "btc", &got)
		require.NoError(t, err)
		require.True(t, found, "run %d", i)
		require.Equal(t, 2, got)
		require.Len(t, m.items, 1)
	}
}

func TestMemory_IncrNeverEvictsCounter(t *testing.T) {
	for i := 0; i < 50; i++ {
		m, _ := newTestMemory(1)
		_, _ = m.SetIfAbsent(t.Context(), "eth", 1)

		n, err := m.Incr(t.Context(), "hits")
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		_, ok := m.items["hits"]
		require.True(t, ok, "run %d", i)
	}
}
