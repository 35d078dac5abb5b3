package timers

import "errors"

var (
	// ErrTimerRange reports a timer id outside [0, MaxTimers) on a mutating
	// call. This is a caller bug, not a runtime condition.
	ErrTimerRange = errors.New("timer id out of range")

	// ErrDeviceNotRestored reports GPU timer use before RestoreDevice, or
	// after ReleaseDevice without a matching restore.
	ErrDeviceNotRestored = errors.New("gpu timer device not restored")
)
