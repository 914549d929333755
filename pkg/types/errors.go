package types

import "errors"

// Sentinel errors shared across internal packages, wrapped with
// fmt.Errorf("...: %w", err) at each layer per the teacher's convention.
var (
	ErrNotRunning     = errors.New("engine is not running")
	ErrAlreadyRunning = errors.New("engine is already running")
	ErrQueueClosed    = errors.New("request queue is closed")
	ErrQueueFull      = errors.New("request queue is full")
)
