package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_PushWithinCapacity(t *testing.T) {
	assert := assert.New(t)

	r := New[int](3)
	r.Push(1)
	r.Push(2)

	assert.Equal(2, r.Length())
	assert.Equal([]int{1, 2}, r.Items())
}

func TestRing_EvictsOldestPastCapacity(t *testing.T) {
	assert := assert.New(t)

	r := New[int](3)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	r.Push(4)
	r.Push(5)

	assert.Equal(3, r.Length())
	assert.Equal([]int{3, 4, 5}, r.Items())
}

func TestRing_FindAndLast(t *testing.T) {
	assert := assert.New(t)

	r := New[string](3)
	r.Push("a")
	r.Push("bb")
	r.Push("bbb")

	found, ok := r.Find(func(s string) bool { return len(s) == 2 })
	assert.True(ok)
	assert.Equal("bb", found)

	last, ok := r.Last(func(s string) bool { return true })
	assert.True(ok)
	assert.Equal("bbb", last)

	_, ok = r.Find(func(s string) bool { return len(s) == 9 })
	assert.False(ok)
}

func TestRing_NewPanicsOnNonPositiveCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
}

func TestRing_PushEvictReportsEvictedElement(t *testing.T) {
	assert := assert.New(t)

	r := New[int](2)

	_, ok := r.PushEvict(1)
	assert.False(ok)
	_, ok = r.PushEvict(2)
	assert.False(ok)

	evicted, ok := r.PushEvict(3)
	assert.True(ok)
	assert.Equal(1, evicted)
	assert.Equal([]int{2, 3}, r.Items())
}
