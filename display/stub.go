//go:build !sdl

package display

import "errors"

// Available reports whether the binary was built with SDL.
const Available = false

// ErrUnavailable is returned by Open in builds without the sdl tag.
var ErrUnavailable = errors.New("built without sdl support (rebuild with -tags sdl)")

// Open always fails in builds without SDL.
func Open(title string, width, height int) (Window, error) {
	return nil, ErrUnavailable
}
