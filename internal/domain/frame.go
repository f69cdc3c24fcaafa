package domain

import "time"

// Canonical landmark indices. The landmark oracle must be index-stable: the
// point at index i always refers to the same facial feature across frames.
const (
	IdxEyeLeft = iota
	IdxEyeRight
	IdxNose
	IdxMouthLeft
	IdxMouthRight
)

// MinLandmarks is the smallest point set a reading must carry to be usable
const MinLandmarks = 5

// Expression score keys produced by the landmark oracle
const (
	ExprSmileLeft  = "mouthSmileLeft"
	ExprSmileRight = "mouthSmileRight"
	ExprBlinkLeft  = "eyeBlinkLeft"
	ExprBlinkRight = "eyeBlinkRight"
)

// Point is a single landmark coordinate, normalized to [0,1] image space
// (Y grows downward). Z is optional depth when the oracle provides it.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// FrameReading is the landmark point set plus named expression scores for a
// single video frame. Ephemeral; produced per frame, never persisted.
type FrameReading struct {
	Points      []Point            `json:"points"`
	Expressions map[string]float64 `json:"expressions"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Expression returns the named score, zero when absent
func (r *FrameReading) Expression(name string) float64 {
	return r.Expressions[name]
}

// FaceBox computes the bounding box of the landmark set in normalized
// coordinates. Returns zeros for an empty reading.
func (r *FrameReading) FaceBox() (width, height, centerX float64) {
	if len(r.Points) == 0 {
		return 0, 0, 0
	}

	minX, maxX := r.Points[0].X, r.Points[0].X
	minY, maxY := r.Points[0].Y, r.Points[0].Y
	for _, p := range r.Points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	return maxX - minX, maxY - minY, (minX + maxX) / 2
}
