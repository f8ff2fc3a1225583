// Package permissions checks macOS privacy permissions needed for local
// display capture.
package permissions
