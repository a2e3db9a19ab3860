//go:build !portaudio

package portaudio

import (
	"errors"
	"log/slog"
)

// Available reports whether the binary was built with PortAudio.
const Available = false

// ErrUnavailable is returned by Open in builds without the portaudio tag.
var ErrUnavailable = errors.New("built without portaudio support (rebuild with -tags portaudio)")

// Source is unused in builds without PortAudio.
type Source struct{}

// Open always fails in builds without PortAudio.
func Open(*slog.Logger) (*Source, error) {
	return nil, ErrUnavailable
}

func (*Source) Next() (left, right []int16) { return nil, nil }

func (*Source) Close() error { return nil }
