// Package mic opens the default microphone as a stream of provider-rate
// PCM. Capture runs at 48 kHz and is converted to the requested format
// through the resampler, since most input devices do not support the
// 24 kHz / 16 kHz rates realtime speech providers expect.
package mic

import (
	"fmt"
	"io"
	"time"

	"github.com/isotranslate/iso/pkg/audio/pcm"
	"github.com/isotranslate/iso/pkg/audio/portaudio"
	"github.com/isotranslate/iso/pkg/audio/resampler"
)

// captureFormat is the rate the input device is opened at.
const captureFormat = pcm.L16Mono48K

// bufferDuration is the capture read granularity.
const bufferDuration = 20 * time.Millisecond

// Source is an open microphone delivering PCM at the requested format.
type Source struct {
	stream *portaudio.InputStream
	conv   resampler.Resampler
}

// Open acquires the default input device and returns a Source reading PCM
// at the target format.
func Open(target pcm.Format) (*Source, error) {
	stream, err := portaudio.NewInputStream(captureFormat, bufferDuration)
	if err != nil {
		return nil, fmt.Errorf("mic: open input device: %w", err)
	}

	if target == captureFormat {
		return &Source{stream: stream}, nil
	}

	conv, err := resampler.New(stream,
		resampler.Format{SampleRate: captureFormat.SampleRate()},
		resampler.Format{SampleRate: target.SampleRate()},
	)
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("mic: %w", err)
	}
	return &Source{stream: stream, conv: conv}, nil
}

// Read fills p with PCM bytes at the target format.
func (s *Source) Read(p []byte) (int, error) {
	if s.conv == nil {
		return s.stream.Read(p)
	}
	return s.conv.Read(p)
}

// Close releases the input device.
func (s *Source) Close() error {
	var err error
	if s.conv != nil {
		err = s.conv.Close()
	}
	if cerr := s.stream.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

var _ io.ReadCloser = (*Source)(nil)
