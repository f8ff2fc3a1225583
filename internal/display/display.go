// Package display shows mirrored frames in a desktop window and turns mouse
// gestures and hotkeys into mirror commands.
package display

import "github.com/junsooki/screencast/internal/pointer"

// Controls are the callbacks fired from the window's update loop. Nil
// callbacks are ignored.
type Controls struct {
	// OnPointer receives mouse gestures in frame coordinates.
	OnPointer func(kind pointer.Kind, x, y float64)
	// OnToggleOrientation fires on the O key.
	OnToggleOrientation func()
	// OnToggleRecording fires on the R key.
	OnToggleRecording func()
}

// Options configures the window.
type Options struct {
	Title  string
	Width  int
	Height int
}
