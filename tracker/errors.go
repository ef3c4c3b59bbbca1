package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start on a running session.
	ErrAlreadyRunning = errors.New("tracker: session already running")

	// ErrSessionStopped is returned by Start on a stopped session. Stopped
	// sessions cannot be restarted.
	ErrSessionStopped = errors.New("tracker: session stopped")

	// ErrNilCallback is returned by Start when onUpdate is nil.
	ErrNilCallback = errors.New("tracker: onUpdate callback is nil")

	// ErrNilStream is returned by Start when stream is nil.
	ErrNilStream = errors.New("tracker: stream is nil")

	// ErrDriverBusy is returned by a Driver asked to schedule a second loop.
	ErrDriverBusy = errors.New("tracker: driver already scheduled")
)

// Start stages reported by StartError.
const (
	StageConfig     = "config"
	StageSampleRate = "sample_rate"
	StageFilter     = "filter_chain"
	StageAttach     = "attach"
	StageSchedule   = "schedule"
)

// StartError reports a session setup failure. The session stays Idle.
type StartError struct {
	Stage string
	Err   error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("tracker: start failed at %s: %v", e.Stage, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }
