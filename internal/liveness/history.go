package liveness

// PositionHistory is a bounded sliding window of one scalar landmark
// coordinate, used to detect directional head motion from the range and the
// ordering of extrema within the window. Oldest samples are evicted first.
type PositionHistory struct {
	values   []float64
	capacity int
}

// NewPositionHistory creates a history window with fixed capacity
func NewPositionHistory(capacity int) *PositionHistory {
	return &PositionHistory{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a sample, evicting the oldest when the window is full
func (h *PositionHistory) Push(v float64) {
	if len(h.values) == h.capacity {
		copy(h.values, h.values[1:])
		h.values = h.values[:len(h.values)-1]
	}
	h.values = append(h.values, v)
}

// Clear empties the window
func (h *PositionHistory) Clear() {
	h.values = h.values[:0]
}

// Len returns the number of samples currently held
func (h *PositionHistory) Len() int {
	return len(h.values)
}

// Full reports whether the window has reached capacity
func (h *PositionHistory) Full() bool {
	return len(h.values) == h.capacity
}

// extrema returns the indices of the maximum and minimum samples.
// Ties keep the earliest occurrence.
func (h *PositionHistory) extrema() (maxIdx, minIdx int) {
	for i, v := range h.values {
		if v > h.values[maxIdx] {
			maxIdx = i
		}
		if v < h.values[minIdx] {
			minIdx = i
		}
	}
	return maxIdx, minIdx
}

// Range returns the spread between the highest and lowest samples
func (h *PositionHistory) Range() float64 {
	if len(h.values) == 0 {
		return 0
	}
	maxIdx, minIdx := h.extrema()
	return h.values[maxIdx] - h.values[minIdx]
}

// DownThenUp recognizes a nod: the window spread exceeds threshold, the
// maximum (lowest head position on screen) precedes the minimum, and the
// minimum falls in the later half of the window. Screen Y grows downward, so
// max-then-min is the head going down and coming back up.
func (h *PositionHistory) DownThenUp(threshold float64) bool {
	if len(h.values) < 2 {
		return false
	}

	maxIdx, minIdx := h.extrema()
	if h.values[maxIdx]-h.values[minIdx] <= threshold {
		return false
	}

	return maxIdx < minIdx && minIdx >= len(h.values)/2
}

// RaisedUp recognizes a head-raise: sustained upward displacement, measured
// as first-minus-last exceeding threshold (the tracked point moved up the
// screen over the window).
func (h *PositionHistory) RaisedUp(threshold float64) bool {
	if len(h.values) < 2 {
		return false
	}
	return h.values[0]-h.values[len(h.values)-1] > threshold
}
