package scheduler

import "errors"

var (
	// ErrSweeperNotRunning is returned when triggering a sweep on a stopped sweeper
	ErrSweeperNotRunning = errors.New("sweeper is not running")

	// ErrSweepInProgress is returned when a sweep is already running
	ErrSweepInProgress = errors.New("sweep already in progress")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid sweeper configuration")
)
