// Package scanner drives a live scanning session: frames are sampled from
// a source at a fixed rate, decoded, fed to check-in, and the result is
// displayed for a fixed delay before scanning resumes.  The session is an
// explicit state machine (Idle, Scanning, ResultDisplayed) with transitions
// driven by events (start, frame-decoded, timeout-elapsed, stop) so the
// concurrency contract stays auditable instead of living in ambient flags.
package scanner

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-checkin/internal/checkin"
	"github.com/iliyamo/event-checkin/internal/config"
)

// State is the scan session's lifecycle position.
type State int

const (
	// StateIdle means no scan loop is running.
	StateIdle State = iota
	// StateScanning means frames are being sampled and decoded.
	StateScanning
	// StateResultDisplayed means a result is on screen and frame capture
	// is suspended until the display delay elapses.
	StateResultDisplayed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateResultDisplayed:
		return "result-displayed"
	}
	return "unknown"
}

// ErrNotIdle is returned by Start when a session is already running.
var ErrNotIdle = errors.New("scanner: session already started")

// FrameSource produces raster frames, typically from a camera stream.
// NextFrame should return io.EOF when the stream ends.
type FrameSource interface {
	NextFrame(ctx context.Context) (image.Image, error)
}

// DecodeFunc extracts a payload string from a frame.  A miss is an error
// (the pipeline's not-found), which simply keeps the session scanning.
type DecodeFunc func(image.Image) (string, error)

// CheckInFunc performs the check-in for a decoded payload.
type CheckInFunc func(ctx context.Context, payload string) checkin.Result

// Options size the session's timing.  Zero values fall back to a 100ms
// frame interval and a 5s result display.
type Options struct {
	FrameInterval time.Duration
	ResultDisplay time.Duration
}

// OptionsFromConfig maps the SCAN_FRAME_INTERVAL / SCAN_RESULT_DISPLAY
// settings onto session options.  Embedding callers building a session
// from application config go through here so the env knobs stay honored.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		FrameInterval: cfg.ScanInterval,
		ResultDisplay: cfg.ResultDisplay,
	}
}

// Session is one scanning surface's state machine.  All methods are safe
// for concurrent use; the decode work itself runs on the session's own
// goroutine.
type Session struct {
	id      string
	source  FrameSource
	decode  DecodeFunc
	checkIn CheckInFunc
	opts    Options

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc

	results chan checkin.Result
}

// NewSession builds an idle session.  Results of each scan are delivered
// on the channel returned by Results.
func NewSession(source FrameSource, decode DecodeFunc, checkIn CheckInFunc, opts Options) *Session {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 100 * time.Millisecond
	}
	if opts.ResultDisplay <= 0 {
		opts.ResultDisplay = 5 * time.Second
	}
	return &Session{
		id:      uuid.NewString(),
		source:  source,
		decode:  decode,
		checkIn: checkIn,
		opts:    opts,
		state:   StateIdle,
		results: make(chan checkin.Result, 16),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Results delivers one Result per decoded frame.  Delivery is best-effort:
// if the consumer lags the buffer, results are dropped rather than stalling
// the scan loop.
func (s *Session) Results() <-chan checkin.Result { return s.results }

// Start moves Idle to Scanning and launches the sampling loop.  Returns
// ErrNotIdle if the session is already running.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrNotIdle
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateScanning
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop moves the session to Idle from any state and cancels the loop.
// An in-flight decode is allowed to finish and its result is discarded;
// decode has no side effects until the final check-in call, and a check-in
// already issued stands.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateIdle
}

// run is the cooperative scan loop: sample, decode, check in, display,
// resume.  Decoding is the only CPU-bound step and runs inline; while a
// result is displayed the ticker fires but frames are not sampled.
func (s *Session) run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if s.State() != StateScanning {
			continue
		}

		frame, err := s.source.NextFrame(ctx)
		if errors.Is(err, io.EOF) {
			s.Stop()
			return
		}
		if err != nil {
			continue
		}

		payload, err := s.decode(frame)
		if err != nil {
			continue // no code in this frame; keep scanning
		}

		result := s.checkIn(ctx, payload)
		s.onFrameDecoded(ctx, result)
	}
}

// onFrameDecoded handles the frame-decoded event: pause, publish the
// result, and schedule the timeout-elapsed event that resumes scanning.
func (s *Session) onFrameDecoded(ctx context.Context, result checkin.Result) {
	s.mu.Lock()
	if s.state != StateScanning {
		s.mu.Unlock()
		return
	}
	s.state = StateResultDisplayed
	s.mu.Unlock()

	select {
	case s.results <- result:
	default:
	}

	time.AfterFunc(s.opts.ResultDisplay, func() {
		if ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		if s.state == StateResultDisplayed {
			s.state = StateScanning
		}
		s.mu.Unlock()
	})
}
