package scanner

import (
	"context"
	"errors"
	"image"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/event-checkin/internal/checkin"
	"github.com/iliyamo/event-checkin/internal/config"
)

// stubSource serves a fixed number of frames, then io.EOF.
type stubSource struct {
	frames int64
}

func (s *stubSource) NextFrame(context.Context) (image.Image, error) {
	if atomic.AddInt64(&s.frames, -1) < 0 {
		return nil, io.EOF
	}
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

var errNoCode = errors.New("no code")

func fastOptions() Options {
	return Options{FrameInterval: time.Millisecond, ResultDisplay: 20 * time.Millisecond}
}

// waitState polls until the session reaches want or the deadline passes.
func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", s.State(), want)
}

func TestSession_StartStop(t *testing.T) {
	decode := func(image.Image) (string, error) { return "", errNoCode }
	checkIn := func(context.Context, string) checkin.Result { return checkin.Result{} }
	s := NewSession(&stubSource{frames: 1 << 30}, decode, checkIn, fastOptions())

	if s.State() != StateIdle {
		t.Fatalf("new session state = %v, want idle", s.State())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != StateScanning {
		t.Fatalf("state after Start = %v, want scanning", s.State())
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrNotIdle) {
		t.Errorf("second Start err = %v, want ErrNotIdle", err)
	}
	s.Stop()
	if s.State() != StateIdle {
		t.Errorf("state after Stop = %v, want idle", s.State())
	}
	// Stop from Idle is a no-op, not a panic.
	s.Stop()
}

func TestSession_DecodedFramePausesScanning(t *testing.T) {
	var decodes int64
	decode := func(image.Image) (string, error) {
		if atomic.AddInt64(&decodes, 1) == 1 {
			return "payload", nil
		}
		return "", errNoCode
	}
	var checkIns int64
	checkIn := func(_ context.Context, payload string) checkin.Result {
		atomic.AddInt64(&checkIns, 1)
		return checkin.Result{Success: true, Message: payload}
	}

	s := NewSession(&stubSource{frames: 1 << 30}, decode, checkIn, fastOptions())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	waitState(t, s, StateResultDisplayed)

	select {
	case res := <-s.Results():
		if !res.Success || res.Message != "payload" {
			t.Errorf("result = %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}

	// While the result is displayed no frames are sampled, so the check-in
	// count must stay at one.
	if n := atomic.LoadInt64(&checkIns); n != 1 {
		t.Errorf("check-ins during display = %d, want 1", n)
	}

	// After the display delay the session resumes scanning on its own.
	waitState(t, s, StateScanning)
}

func TestSession_SourceEOFStopsSession(t *testing.T) {
	decode := func(image.Image) (string, error) { return "", errNoCode }
	checkIn := func(context.Context, string) checkin.Result { return checkin.Result{} }
	s := NewSession(&stubSource{frames: 3}, decode, checkIn, fastOptions())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitState(t, s, StateIdle)

	// A drained session can be started again.
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	s.Stop()
}

func TestSession_StopDuringDisplayWinsOverResume(t *testing.T) {
	decode := func(image.Image) (string, error) { return "payload", nil }
	checkIn := func(context.Context, string) checkin.Result { return checkin.Result{Success: true} }
	s := NewSession(&stubSource{frames: 1 << 30}, decode, checkIn, fastOptions())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitState(t, s, StateResultDisplayed)
	s.Stop()

	// The pending display timeout must not flip a stopped session back to
	// scanning.
	time.Sleep(50 * time.Millisecond)
	if got := s.State(); got != StateIdle {
		t.Errorf("state after Stop = %v, want idle", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.Config{
		ScanInterval:  50 * time.Millisecond,
		ResultDisplay: 2 * time.Second,
	})
	if opts.FrameInterval != 50*time.Millisecond {
		t.Errorf("FrameInterval = %v, want 50ms", opts.FrameInterval)
	}
	if opts.ResultDisplay != 2*time.Second {
		t.Errorf("ResultDisplay = %v, want 2s", opts.ResultDisplay)
	}

	// Unset config falls back to the session defaults.
	s := NewSession(&stubSource{}, nil, nil, OptionsFromConfig(config.Config{}))
	if s.opts.FrameInterval != 100*time.Millisecond || s.opts.ResultDisplay != 5*time.Second {
		t.Errorf("defaults = %+v, want 100ms/5s", s.opts)
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateIdle:            "idle",
		StateScanning:        "scanning",
		StateResultDisplayed: "result-displayed",
		State(99):            "unknown",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", in, got, want)
		}
	}
}
