package lane

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_EmptyPopFront(t *testing.T) {
	r := newRing[int]()
	_, ok := r.PopFront()
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRing_FIFOOrder(t *testing.T) {
	r := newRing[int]()
	for i := 0; i < 5; i++ {
		r.PushBack(i)
	}
	assert.Equal(t, 5, r.Len())
	for i := 0; i < 5; i++ {
		v, ok := r.PopFront()
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, r.Len())
}

func TestRing_GrowsBeyondInitialCapacity(t *testing.T) {
	r := newRing[int]()
	const n = 100
	for i := 0; i < n; i++ {
		r.PushBack(i)
	}
	assert.Equal(t, n, r.Len())
	for i := 0; i < n; i++ {
		v, ok := r.PopFront()
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestRing_WrapAroundThenGrow(t *testing.T) {
	r := newRing[int]()
	// fill and drain partially so r and w wrap past the backing array's
	// bounds, then push past capacity to exercise grow() while wrapped.
	for i := 0; i < minRingSize; i++ {
		r.PushBack(i)
	}
	for i := 0; i < minRingSize/2; i++ {
		v, _ := r.PopFront()
		assert.Equal(t, i, v)
	}
	for i := minRingSize; i < minRingSize+minRingSize; i++ {
		r.PushBack(i)
	}
	assert.Equal(t, minRingSize+minRingSize/2, r.Len())
	for i := minRingSize / 2; i < minRingSize+minRingSize; i++ {
		v, ok := r.PopFront()
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
}
