//go:build portaudio

// Package portaudio feeds live microphone input into the hardware bridge.
// Build with -tags portaudio; it links against the PortAudio C library.
package portaudio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/caffeineduck/eyesy/hardware"
	pa "github.com/gordonklaus/portaudio"
)

// Available reports whether the binary was built with PortAudio.
const Available = true

// Source captures the default input device. Next returns the most recent
// complete buffer without blocking.
type Source struct {
	stream   *pa.Stream
	channels int
	in       []int16
	logger   *slog.Logger

	mu          sync.Mutex
	left, right []int16

	done chan struct{}
	wg   sync.WaitGroup
}

// Open starts capturing from the default input device.
func Open(logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	dev, err := pa.DefaultInputDevice()
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("default input device: %w", err)
	}
	channels := min(dev.MaxInputChannels, 2)
	if channels < 1 {
		pa.Terminate()
		return nil, errors.New("default input device has no input channels")
	}

	s := &Source{
		channels: channels,
		in:       make([]int16, hardware.AudioBufferLen*channels),
		logger:   logger,
		left:     make([]int16, hardware.AudioBufferLen),
		right:    make([]int16, hardware.AudioBufferLen),
		done:     make(chan struct{}),
	}

	stream, err := pa.OpenDefaultStream(channels, 0, dev.DefaultSampleRate, hardware.AudioBufferLen, s.in)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		pa.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	s.stream = stream

	logger.Info("audio input opened",
		"device", dev.Name,
		"channels", channels,
		"sample_rate", dev.DefaultSampleRate)

	s.wg.Add(1)
	go s.capture()
	return s, nil
}

func (s *Source) capture() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			// Overflows drop a buffer; anything else ends capture.
			if errors.Is(err, pa.InputOverflowed) {
				continue
			}
			select {
			case <-s.done:
			default:
				s.logger.Error("audio input stopped", "error", err)
			}
			return
		}

		left := make([]int16, hardware.AudioBufferLen)
		right := make([]int16, hardware.AudioBufferLen)
		for i := range left {
			left[i] = s.in[i*s.channels]
			right[i] = s.in[i*s.channels+s.channels-1]
		}

		s.mu.Lock()
		s.left, s.right = left, right
		s.mu.Unlock()
	}
}

// Next implements hardware.AudioSource.
func (s *Source) Next() (left, right []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.left, s.right
}

// Close stops capture and releases PortAudio.
func (s *Source) Close() error {
	close(s.done)
	err := s.stream.Stop()
	s.wg.Wait()
	if cerr := s.stream.Close(); err == nil {
		err = cerr
	}
	if terr := pa.Terminate(); err == nil {
		err = terr
	}
	return err
}
