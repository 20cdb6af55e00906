package utils

import (
	"market-pulse/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of chart points.
// Appending to a full buffer overwrites the oldest point.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MChartPoint
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultChartWindowSize
	}

	return &RingBuffer{
		data:     make([]models.MChartPoint, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a point, evicting the oldest one when full
func (rb *RingBuffer) Append(point models.MChartPoint) {
	rb.data[rb.index] = point
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest points, oldest first
func (rb *RingBuffer) GetLatest(n int) []models.MChartPoint {
	if rb.size == 0 || n <= 0 {
		return []models.MChartPoint{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MChartPoint, count)

	// Latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MChartPoint {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// First returns the oldest point
func (rb *RingBuffer) First() (models.MChartPoint, bool) {
	if rb.size == 0 {
		return models.MChartPoint{}, false
	}
	return rb.data[(rb.index-rb.size+rb.capacity)%rb.capacity], true
}

// -----------------------------------------------------------------------------

// Last returns the newest point
func (rb *RingBuffer) Last() (models.MChartPoint, bool) {
	if rb.size == 0 {
		return models.MChartPoint{}, false
	}
	return rb.data[(rb.index-1+rb.capacity)%rb.capacity], true
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *RingBuffer) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer and drops references to old points
func (rb *RingBuffer) Clear() {
	for i := range rb.data {
		rb.data[i] = models.MChartPoint{}
	}
	rb.index = 0
	rb.size = 0
}
