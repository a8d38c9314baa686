package portaudio

import (
	"io"
	"sync"
	"time"

	"github.com/isotranslate/iso/pkg/audio/pcm"
)

// InputStream captures audio from the default input device.
type InputStream struct {
	stream *Stream
	format pcm.Format
	frames int
	mu     sync.Mutex
	closed bool
}

// NewInputStream opens the default input device for recording at the given
// PCM format. bufferDuration is the duration of each read buffer.
func NewInputStream(format pcm.Format, bufferDuration time.Duration) (*InputStream, error) {
	framesPerBuffer := int(format.SamplesInDuration(bufferDuration))

	stream, err := openStream(format.Channels(), float64(format.SampleRate()), framesPerBuffer)
	if err != nil {
		return nil, err
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}

	return &InputStream{
		stream: stream,
		format: format,
		frames: framesPerBuffer,
	}, nil
}

// Read fills buf with captured PCM bytes (little-endian int16) and returns
// the number of bytes read. It satisfies io.Reader so the stream can feed
// a resampler directly.
func (is *InputStream) Read(buf []byte) (int, error) {
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.closed {
		return 0, io.EOF
	}

	frames := is.frames
	if max := len(buf) / 2; max < frames {
		frames = max
	}
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}

	samples, err := is.stream.Read(frames)
	if err != nil {
		return 0, err
	}

	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return len(samples) * 2, nil
}

// Format returns the PCM format.
func (is *InputStream) Format() pcm.Format {
	return is.format
}

// Close stops and closes the stream.
func (is *InputStream) Close() error {
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.closed {
		return nil
	}
	is.closed = true

	return is.stream.Close()
}
