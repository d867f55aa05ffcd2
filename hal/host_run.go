//go:build !tinygo

package hal

// App is a running program on top of the HAL.
type App interface {
	// Step runs one iteration of the foreground loop.
	Step() error
	// Close stops the program and releases the video output.
	Close() error
}

// NewAppFunc constructs an App from a HAL.
type NewAppFunc func(HAL) (App, error)
