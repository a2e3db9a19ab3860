// Package display shows the screen surface in a desktop window. The SDL
// backend is compiled only with the sdl build tag:
//
//	go build -tags sdl ./cmd/eyesy
package display

import (
	"context"
	"image"
	"time"
)

// Window presents frames.
type Window interface {
	// Present shows img, which must match the window size.
	Present(img *image.RGBA) error
	// Closed reports whether the user closed the window. It also drains
	// pending window events.
	Closed() bool
	Close() error
}

// Run presents frame() every interval until ctx is done or the window is
// closed. frame may return nil while there is nothing to show.
func Run(ctx context.Context, w Window, interval time.Duration, frame func() *image.RGBA) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if w.Closed() {
			return nil
		}
		if img := frame(); img != nil {
			if err := w.Present(img); err != nil {
				return err
			}
		}
	}
}
