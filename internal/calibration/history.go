package calibration

// History is a fixed-capacity FIFO of wrapped bearing/heading differences in
// degrees. Pushing into a full history evicts the oldest entry.
type History struct {
	data []float64
	pos  int
	full bool
}

// NewHistory creates a History holding at most capacity values.
func NewHistory(capacity int) *History {
	return &History{data: make([]float64, capacity)}
}

// Push appends a value, evicting the oldest one when full.
func (h *History) Push(v float64) {
	h.data[h.pos] = v
	h.pos++
	if h.pos >= len(h.data) {
		h.pos = 0
		h.full = true
	}
}

// Len returns the number of stored values.
func (h *History) Len() int {
	if h.full {
		return len(h.data)
	}
	return h.pos
}

// Cap returns the capacity.
func (h *History) Cap() int { return len(h.data) }

// Full reports whether Len() == Cap().
func (h *History) Full() bool { return h.full }

// Values returns a copy of the contents, oldest first.
func (h *History) Values() []float64 {
	out := make([]float64, h.Len())
	if h.full {
		copy(out, h.data[h.pos:])
		copy(out[len(h.data)-h.pos:], h.data[:h.pos])
	} else {
		copy(out, h.data[:h.pos])
	}
	return out
}

// Clear empties the history.
func (h *History) Clear() {
	h.pos = 0
	h.full = false
}
