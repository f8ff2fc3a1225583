//go:build !darwin

package permissions

// HasScreenRecording reports true; only macOS gates screen capture.
func HasScreenRecording() bool { return true }

// RequestScreenRecording is a no-op outside macOS.
func RequestScreenRecording() bool { return true }
