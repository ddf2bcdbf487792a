package concurrent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	t.Parallel()

	m := NewMap[string, int]()

	_, ok := m.Load("a")
	assert.False(t, ok)

	m.Store("a", 1)
	v, ok := m.Load("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, m.Length())

	m.Delete("a")
	assert.Equal(t, 0, m.Length())
}

func TestMapLoadOrStore(t *testing.T) {
	t.Parallel()

	m := NewMap[string, int]()

	v, loaded := m.LoadOrStore("a", 1)
	assert.False(t, loaded)
	assert.Equal(t, 1, v)

	v, loaded = m.LoadOrStore("a", 2)
	assert.True(t, loaded)
	assert.Equal(t, 1, v, "existing value wins")
}

func TestMapRange(t *testing.T) {
	t.Parallel()

	m := NewMap[string, int]()
	m.Store("a", 1)
	m.Store("b", 2)

	seen := map[string]int{}
	m.Range(func(k string, v int) bool {
		seen[k] = v
		return true
	})
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)

	count := 0
	m.Range(func(string, int) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count, "returning false stops iteration")
}
