package liveness

// EvidenceCounter accumulates per-frame evidence toward a challenge target.
// Absent evidence decays the count by one instead of resetting it, so a
// single noisy frame from the detector does not erase real progress.
type EvidenceCounter struct {
	count  int
	target int
}

// NewEvidenceCounter creates a counter with the given target
func NewEvidenceCounter(target int) *EvidenceCounter {
	return &EvidenceCounter{target: target}
}

// Increment records one frame of positive evidence
func (c *EvidenceCounter) Increment() {
	c.count++
}

// Decay records one frame without evidence, flooring at zero
func (c *EvidenceCounter) Decay() {
	if c.count > 0 {
		c.count--
	}
}

// Reset clears accumulated evidence
func (c *EvidenceCounter) Reset() {
	c.count = 0
}

// Reached reports whether the target has been met
func (c *EvidenceCounter) Reached() bool {
	return c.count >= c.target
}

// Count returns the current evidence count
func (c *EvidenceCounter) Count() int {
	return c.count
}

// Target returns the configured target
func (c *EvidenceCounter) Target() int {
	return c.target
}
