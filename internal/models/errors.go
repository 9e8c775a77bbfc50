package models

import "errors"

var (
	// ErrInvalidFrame is returned for malformed or empty pixel buffers
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrUnknownLane is returned for lane ids outside the fixed set of four
	ErrUnknownLane = errors.New("unknown lane")
	// ErrNoActiveSession is returned when ticking or triggering without a running session
	ErrNoActiveSession = errors.New("no active session")
	// ErrNoVideo is returned when a session is started without any lane video
	ErrNoVideo = errors.New("at least one lane video is required")
	// ErrSessionActive is returned when starting a session while another is running
	ErrSessionActive = errors.New("session already active")
)
