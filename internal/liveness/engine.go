// Package liveness drives a capture device through the behavioral challenge
// sequence (stabilize, neutral capture, smile, nod, head-raise) using
// per-frame landmark and expression readings.
//
// The two robustness mechanisms here are deliberate and load-bearing:
// evidence counters decay instead of resetting, so one noisy detector frame
// does not erase progress, and motion challenges wait a settle delay after
// the gesture before capturing, so the sample is not taken mid-motion blur.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveid/internal/quality"
)

// State is the current phase of a challenge session
type State string

const (
	StateStabilizing       State = "stabilizing"
	StateAwaitingNormal    State = "awaiting_normal"
	StateAwaitingSmile     State = "awaiting_smile"
	StateAwaitingNod       State = "awaiting_nod"
	StateAwaitingHeadRaise State = "awaiting_head_raise"
	StateProcessing        State = "processing"
	StateSubmitting        State = "submitting"
	StateSuccess           State = "success"
	StateFailed            State = "failed"
)

// Terminal reports whether no further transitions can happen without Retry
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

var (
	// ErrAborted marks a session ended by an explicit abort
	ErrAborted = errors.New("challenge aborted")
	// ErrTimedOut marks a session that stayed too long in one state
	ErrTimedOut = errors.New("challenge timed out")
	// ErrNotAwaitingCapture is returned when RequestCapture is called
	// outside the awaiting_normal state
	ErrNotAwaitingCapture = errors.New("no capture expected in current state")
	// ErrUnstable is returned when a capture is requested while face
	// quality is low
	ErrUnstable = errors.New("face not stable enough to capture")
)

// CaptureError is a recoverable failure during a milestone capture. The
// engine stays in its state with evidence preserved; the user repeats the
// gesture.
type CaptureError struct {
	Stage string
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed at %s: %v", e.Stage, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the session can continue after err
func IsRetryable(err error) bool {
	var ce *CaptureError
	return errors.As(err, &ce) || errors.Is(err, ErrUnstable)
}

// Config holds the challenge thresholds and targets
type Config struct {
	// FrameInterval throttles frame admission; frames arriving faster are
	// dropped (backpressure against an unbounded producer, ~15/s default)
	FrameInterval time.Duration
	// StableTarget is the number of consecutive high-quality frames
	// required to leave stabilizing
	StableTarget int
	// MinFaceWidth / MinFaceHeight are the minimum normalized face box
	// dimensions for a frame to count as high quality
	MinFaceWidth  float64
	MinFaceHeight float64
	// CenterTolerance is the maximum horizontal offset of the face center
	// from the frame center
	CenterTolerance float64
	// SmileThreshold is the per-side expression score above which a frame
	// counts as smiling
	SmileThreshold float64
	// SmileTarget is the evidence count required to capture the smile
	SmileTarget int
	// MotionThreshold is the minimum window displacement for nod and
	// head-raise detection
	MotionThreshold float64
	// MotionTarget is the evidence count that marks a gesture complete
	MotionTarget int
	// SettleFrames is the post-gesture delay before capturing
	SettleFrames int
	// HistorySize bounds the position window
	HistorySize int
	// NoseIndex selects the landmark whose vertical coordinate is tracked
	NoseIndex int
	// StateTimeout fails the session when no progress happens for this
	// long; zero disables the timeout
	StateTimeout time.Duration
}

// DefaultConfig returns the thresholds used in production
func DefaultConfig() Config {
	return Config{
		FrameInterval:   66 * time.Millisecond,
		StableTarget:    5,
		MinFaceWidth:    0.15,
		MinFaceHeight:   0.2,
		CenterTolerance: 0.2,
		SmileThreshold:  0.3,
		SmileTarget:     15,
		MotionThreshold: 0.05,
		MotionTarget:    8,
		SettleFrames:    10,
		HistorySize:     30,
		NoseIndex:       domain.IdxNose,
		StateTimeout:    60 * time.Second,
	}
}

// Embedder is the embedding oracle consumed at each milestone
type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float64, error)
}

// CaptureFunc returns the raw image region for the current frame
type CaptureFunc func(ctx context.Context) ([]byte, error)

// SubmitFunc hands the completed sample set downstream (enrollment pipeline
// or matching engine, depending on the session purpose)
type SubmitFunc func(ctx context.Context, samples []domain.CapturedSample) error

// Option configures an Engine
type Option func(*Engine)

// WithValidator overrides the embedding quality validator
func WithValidator(v *quality.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithRelease sets the callback invoked exactly once when the capture device
// should be released (abort or terminal state)
func WithRelease(fn func()) Option {
	return func(e *Engine) { e.release = fn }
}

// WithTransitionHook sets a callback invoked on every state change
func WithTransitionHook(fn func(from, to State)) Option {
	return func(e *Engine) { e.onTransition = fn }
}

// Engine is the per-session challenge state machine. It is owned by exactly
// one session and driven from a single goroutine; it holds no cross-session
// state and is not safe for concurrent use.
type Engine struct {
	cfg       Config
	validator *quality.Validator
	embedder  Embedder
	capture   CaptureFunc
	submit    SubmitFunc

	release      func()
	onTransition func(from, to State)

	state        State
	stable       int
	smile        *EvidenceCounter
	motion       *EvidenceCounter
	history      *PositionHistory
	gestureDone  bool
	settleLeft   int
	samples      []domain.CapturedSample
	lastAdmitted time.Time
	lastProgress time.Time
	lastQuality  float64
	qualityOK    bool
	aborted      bool
	released     bool
	err          error
}

// New creates an engine in the stabilizing state
func New(cfg Config, embedder Embedder, capture CaptureFunc, submit SubmitFunc, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		validator: quality.NewValidator(),
		embedder:  embedder,
		capture:   capture,
		submit:    submit,
		state:     StateStabilizing,
		smile:     NewEvidenceCounter(cfg.SmileTarget),
		motion:    NewEvidenceCounter(cfg.MotionTarget),
		history:   NewPositionHistory(cfg.HistorySize),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// State returns the current state
func (e *Engine) State() State {
	return e.state
}

// Err returns the terminal error, if any
func (e *Engine) Err() error {
	return e.err
}

// Samples returns a copy of the captured sample set
func (e *Engine) Samples() []domain.CapturedSample {
	out := make([]domain.CapturedSample, len(e.samples))
	copy(out, e.samples)
	return out
}

// Progress is a point-in-time snapshot for clients driving the UI
type Progress struct {
	State    State               `json:"state"`
	Stable   int                 `json:"stable_frames"`
	Evidence int                 `json:"evidence"`
	Target   int                 `json:"target"`
	Settling bool                `json:"settling"`
	Captured []domain.SampleType `json:"captured"`
	Error    string              `json:"error,omitempty"`
}

// Progress returns the current snapshot
func (e *Engine) Progress() Progress {
	p := Progress{
		State:    e.state,
		Stable:   e.stable,
		Settling: e.gestureDone && e.settleLeft > 0,
	}

	switch e.state {
	case StateStabilizing:
		p.Target = e.cfg.StableTarget
	case StateAwaitingSmile:
		p.Evidence = e.smile.Count()
		p.Target = e.smile.Target()
	case StateAwaitingNod, StateAwaitingHeadRaise:
		p.Evidence = e.motion.Count()
		p.Target = e.motion.Target()
	}

	for _, s := range e.samples {
		p.Captured = append(p.Captured, s.Type)
	}
	if e.err != nil {
		p.Error = e.err.Error()
	}

	return p
}

// HandleFrame evaluates one frame reading. Frames arriving faster than the
// configured interval are dropped. A non-nil error is either retryable
// (capture/validation failure, see IsRetryable) or terminal (timeout,
// submission failure).
func (e *Engine) HandleFrame(ctx context.Context, reading domain.FrameReading) error {
	// Once four samples exist or the session has left the per-frame
	// states, frames must never be evaluated again: a stray evaluation
	// could produce a fifth capture.
	if e.aborted || len(e.samples) >= 4 {
		return nil
	}
	switch e.state {
	case StateStabilizing, StateAwaitingNormal, StateAwaitingSmile, StateAwaitingNod, StateAwaitingHeadRaise:
	default:
		return nil
	}

	ts := reading.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	if !e.lastAdmitted.IsZero() && ts.Sub(e.lastAdmitted) < e.cfg.FrameInterval {
		return nil
	}
	e.lastAdmitted = ts

	if e.lastProgress.IsZero() {
		e.lastProgress = ts
	}
	if e.cfg.StateTimeout > 0 && ts.Sub(e.lastProgress) > e.cfg.StateTimeout {
		e.fail(ErrTimedOut)
		return ErrTimedOut
	}

	e.qualityOK = e.frameQualityOK(&reading)
	if e.qualityOK {
		e.lastQuality = e.frameQuality(&reading)
	}

	switch e.state {
	case StateStabilizing:
		e.stepStabilizing(ts)
		return nil
	case StateAwaitingNormal:
		// Capture here is explicit, via RequestCapture
		return nil
	case StateAwaitingSmile:
		return e.stepSmile(ctx, &reading, ts)
	case StateAwaitingNod:
		return e.stepMotion(ctx, &reading, ts, domain.SampleNod)
	case StateAwaitingHeadRaise:
		return e.stepMotion(ctx, &reading, ts, domain.SampleHeadRaise)
	}

	return nil
}

// RequestCapture is the explicit trigger for the neutral capture. Valid only
// in the awaiting_normal state while frame quality is high.
func (e *Engine) RequestCapture(ctx context.Context) error {
	if e.state != StateAwaitingNormal {
		return ErrNotAwaitingCapture
	}
	if !e.qualityOK {
		return ErrUnstable
	}

	if err := e.captureSample(ctx, domain.SampleNormal); err != nil {
		return err
	}

	e.markProgress(e.lastAdmitted)
	e.smile.Reset()
	e.setState(StateAwaitingSmile)
	return nil
}

// Abort stops frame evaluation, cancels any pending capture and releases the
// capture device. Safe to call from any state, including mid-capture.
func (e *Engine) Abort() {
	e.aborted = true
	if !e.state.Terminal() {
		e.err = ErrAborted
		e.setState(StateFailed)
	}
	e.releaseDevice()
}

// Retry resets all counters, histories and the sample set and returns to
// stabilizing. Only valid from the failed state.
func (e *Engine) Retry() {
	if e.state != StateFailed {
		return
	}

	e.stable = 0
	e.smile.Reset()
	e.motion.Reset()
	e.history.Clear()
	e.gestureDone = false
	e.settleLeft = 0
	e.samples = nil
	e.lastAdmitted = time.Time{}
	e.lastProgress = time.Time{}
	e.qualityOK = false
	e.aborted = false
	e.err = nil
	e.setState(StateStabilizing)
}

func (e *Engine) stepStabilizing(ts time.Time) {
	// Consecutive frames only: any quality drop resets the count to zero,
	// decay would let an unstable face creep past the gate
	if e.qualityOK {
		e.stable++
	} else {
		e.stable = 0
	}

	if e.stable >= e.cfg.StableTarget {
		e.markProgress(ts)
		e.setState(StateAwaitingNormal)
	}
}

func (e *Engine) stepSmile(ctx context.Context, reading *domain.FrameReading, ts time.Time) error {
	left := reading.Expression(domain.ExprSmileLeft)
	right := reading.Expression(domain.ExprSmileRight)

	if left > e.cfg.SmileThreshold && right > e.cfg.SmileThreshold {
		e.smile.Increment()
	} else {
		e.smile.Decay()
	}

	if !e.smile.Reached() {
		return nil
	}

	if err := e.captureSample(ctx, domain.SampleSmile); err != nil {
		return err
	}

	e.markProgress(ts)
	e.history.Clear()
	e.motion.Reset()
	e.gestureDone = false
	e.settleLeft = 0
	e.setState(StateAwaitingNod)
	return nil
}

func (e *Engine) stepMotion(ctx context.Context, reading *domain.FrameReading, ts time.Time, sample domain.SampleType) error {
	if e.cfg.NoseIndex < len(reading.Points) {
		e.history.Push(reading.Points[e.cfg.NoseIndex].Y)
	}

	if !e.gestureDone {
		var matched bool
		if sample == domain.SampleNod {
			matched = e.history.DownThenUp(e.cfg.MotionThreshold)
		} else {
			matched = e.history.RaisedUp(e.cfg.MotionThreshold)
		}

		if matched {
			e.motion.Increment()
		} else {
			e.motion.Decay()
		}

		if e.motion.Reached() {
			// Gesture recognized; wait for the head to settle before
			// capturing or the sample will be motion-blurred
			e.gestureDone = true
			e.settleLeft = e.cfg.SettleFrames
		}
		return nil
	}

	if e.settleLeft > 0 {
		e.settleLeft--
		if e.settleLeft > 0 {
			return nil
		}
	}

	if err := e.captureSample(ctx, sample); err != nil {
		return err
	}

	e.markProgress(ts)
	e.history.Clear()
	e.motion.Reset()
	e.gestureDone = false
	e.settleLeft = 0

	if sample == domain.SampleNod {
		e.setState(StateAwaitingHeadRaise)
		return nil
	}

	return e.finish(ctx)
}

// finish runs processing and submission once all four samples exist
func (e *Engine) finish(ctx context.Context) error {
	e.setState(StateProcessing)
	e.setState(StateSubmitting)

	if err := e.submit(ctx, e.Samples()); err != nil {
		e.fail(fmt.Errorf("submit samples: %w", err))
		return e.err
	}

	e.setState(StateSuccess)
	e.releaseDevice()
	return nil
}

// captureSample grabs the image region, embeds and validates it, then
// appends the sample. Failures are recoverable: state and evidence are left
// untouched so the user can repeat the gesture.
func (e *Engine) captureSample(ctx context.Context, t domain.SampleType) error {
	img, err := e.capture(ctx)
	if err != nil {
		return &CaptureError{Stage: "capture", Err: err}
	}
	if e.aborted {
		return ErrAborted
	}

	emb, err := e.embedder.Embed(ctx, img)
	if err != nil {
		return &CaptureError{Stage: "embed", Err: err}
	}
	if emb == nil {
		return &CaptureError{Stage: "embed", Err: errors.New("oracle returned no embedding")}
	}
	if e.aborted {
		return ErrAborted
	}

	if err := e.validator.Validate(emb); err != nil {
		return &CaptureError{Stage: "validate", Err: err}
	}

	// Duplicate type in one attempt is a no-op, not an error
	for _, s := range e.samples {
		if s.Type == t {
			return nil
		}
	}

	e.samples = append(e.samples, domain.CapturedSample{
		Type:         t,
		Embedding:    emb,
		QualityScore: e.lastQuality,
		CapturedAt:   time.Now().UTC(),
	})
	return nil
}

func (e *Engine) frameQualityOK(r *domain.FrameReading) bool {
	if len(r.Points) < domain.MinLandmarks {
		return false
	}

	w, h, cx := r.FaceBox()
	return w >= e.cfg.MinFaceWidth &&
		h >= e.cfg.MinFaceHeight &&
		math.Abs(cx-0.5) <= e.cfg.CenterTolerance
}

// frameQuality maps the face box area onto [0,1] relative to twice the
// minimum acceptable box
func (e *Engine) frameQuality(r *domain.FrameReading) float64 {
	w, h, _ := r.FaceBox()
	q := (w * h) / (4 * e.cfg.MinFaceWidth * e.cfg.MinFaceHeight)
	if q > 1 {
		return 1
	}
	return q
}

func (e *Engine) markProgress(ts time.Time) {
	e.lastProgress = ts
}

func (e *Engine) fail(err error) {
	e.err = err
	e.setState(StateFailed)
	e.releaseDevice()
}

func (e *Engine) setState(s State) {
	if e.state == s {
		return
	}
	from := e.state
	e.state = s
	if e.onTransition != nil {
		e.onTransition(from, s)
	}
}

func (e *Engine) releaseDevice() {
	if e.released || e.release == nil {
		return
	}
	e.released = true
	e.release()
}
