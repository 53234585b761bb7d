package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryEvictsOldestFirst(t *testing.T) {
	t.Parallel()
	h := NewHistory(3)

	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Values())

	h.Push(1)
	h.Push(2)
	assert.Equal(t, []float64{1, 2}, h.Values())
	assert.False(t, h.Full())

	h.Push(3)
	assert.True(t, h.Full())
	h.Push(4)
	h.Push(5)
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3, h.Cap())
	assert.Equal(t, []float64{3, 4, 5}, h.Values())

	h.Clear()
	assert.Equal(t, 0, h.Len())
	assert.False(t, h.Full())
	h.Push(9)
	assert.Equal(t, []float64{9}, h.Values())
}
