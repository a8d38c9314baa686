package resampler

import (
	"errors"
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// ErrUpmix is returned by New when the source is mono and the destination
// is stereo. The capture pipeline only ever narrows channels.
var ErrUpmix = errors.New("resampler: mono to stereo conversion not supported")

// Resampler wraps an io.Reader and converts audio from a source Format to
// a destination Format. It must be closed to release resources.
type Resampler interface {
	io.ReadCloser
	CloseWithError(error) error
}

// converter is the pure Go Resampler implementation.
type converter struct {
	srcFmt Format
	src    io.Reader

	dstFmt  Format
	readBuf []byte

	mu            sync.Mutex
	closeErr      error
	resampler     resampling.Resampler
	leftover      []byte
	needsResample bool
}

// New creates a Resampler converting audio from srcFmt to dstFmt. Sample
// rate conversion and stereo-to-mono downmixing are supported; the formats
// must use 16-bit signed integer samples.
func New(src io.Reader, srcFmt, dstFmt Format) (Resampler, error) {
	if !srcFmt.Stereo && dstFmt.Stereo {
		return nil, ErrUpmix
	}

	needsResample := srcFmt.SampleRate != dstFmt.SampleRate

	var rs resampling.Resampler
	if needsResample {
		config := &resampling.Config{
			InputRate:  float64(srcFmt.SampleRate),
			OutputRate: float64(dstFmt.SampleRate),
			Channels:   dstFmt.channels(),
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		}
		var err error
		rs, err = resampling.New(config)
		if err != nil {
			return nil, fmt.Errorf("resampler: %w", err)
		}
	}

	return &converter{
		srcFmt: srcFmt,
		src:    newSampleReader(src, srcFmt.sampleBytes()),

		dstFmt: dstFmt,

		resampler:     rs,
		needsResample: needsResample,
	}, nil
}

// Read copies converted audio data into p. It returns the number of bytes
// written and any encountered error.
func (r *converter) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if len(p) < r.dstFmt.sampleBytes() {
		return 0, io.ErrShortBuffer
	}

	// Truncate p to a whole number of destination samples.
	p = p[:len(p)/r.dstFmt.sampleBytes()*r.dstFmt.sampleBytes()]

	r.mu.Lock()
	defer r.mu.Unlock()

	// Drain leftover output from a previous conversion first.
	if len(r.leftover) > 0 {
		n := copy(p, r.leftover)
		r.leftover = r.leftover[n:]
		return n, nil
	}

	if r.closeErr != nil {
		return 0, r.closeErr
	}

	if !r.needsResample {
		return r.readPassthrough(p)
	}
	return r.readAndResample(p)
}

func (r *converter) readAndResample(p []byte) (int, error) {
	// Estimate how much source data fills p after rate conversion, with a
	// few extra samples of slack.
	ratio := float64(r.srcFmt.SampleRate) / float64(r.dstFmt.SampleRate)
	srcBytesNeeded := int(float64(len(p))*ratio) + r.srcFmt.sampleBytes()*4

	if cap(r.readBuf) < srcBytesNeeded {
		r.readBuf = make([]byte, srcBytesNeeded)
	}

	bytesRead, readErr := r.readSource(srcBytesNeeded)
	if bytesRead == 0 {
		if readErr != nil {
			return 0, readErr
		}
		return 0, io.EOF
	}

	// int16 little-endian to normalized float64.
	numChannels := r.dstFmt.channels()
	numFrames := bytesRead / (2 * numChannels)
	input := make([]float64, numFrames*numChannels)
	for i := range input {
		sample := int16(r.readBuf[i*2]) | int16(r.readBuf[i*2+1])<<8
		input[i] = float64(sample) / 32768.0
	}

	output, err := r.resampler.Process(input)
	if err != nil {
		return 0, fmt.Errorf("resampler: process: %w", err)
	}
	if len(output) == 0 {
		if readErr != nil {
			return 0, readErr
		}
		return 0, nil
	}

	// Back to int16 little-endian with clipping.
	outputBytes := make([]byte, len(output)*2)
	for i, s := range output {
		sample := int16(s * 32767.0)
		if s > 1.0 {
			sample = 32767
		} else if s < -1.0 {
			sample = -32768
		}
		outputBytes[i*2] = byte(sample)
		outputBytes[i*2+1] = byte(sample >> 8)
	}

	outputLen := (len(outputBytes) / r.dstFmt.sampleBytes()) * r.dstFmt.sampleBytes()
	outputBytes = outputBytes[:outputLen]

	n := copy(p, outputBytes)
	if len(outputBytes) > n {
		r.leftover = append(r.leftover, outputBytes[n:]...)
	}

	return n, readErr
}

func (r *converter) readPassthrough(p []byte) (int, error) {
	n, err := r.readSource(len(p))
	if n == 0 {
		return 0, err
	}
	copy(p, r.readBuf[:n])
	return n, err
}

// readSource reads up to dstLen bytes of audio from the source, downmixing
// stereo to mono when the formats differ.
func (r *converter) readSource(dstLen int) (int, error) {
	if r.srcFmt.Stereo && !r.dstFmt.Stereo {
		srcLen := dstLen * 2
		if cap(r.readBuf) < srcLen {
			r.readBuf = make([]byte, srcLen)
		}
		rn, err := r.src.Read(r.readBuf[:srcLen])
		if rn == 0 {
			return 0, err
		}
		return stereoToMono(r.readBuf[:rn]), err
	}

	if cap(r.readBuf) < dstLen {
		r.readBuf = make([]byte, dstLen)
	}
	return r.src.Read(r.readBuf[:dstLen])
}

// Close marks the resampler as closed. Subsequent Read calls return
// io.ErrClosedPipe.
func (r *converter) Close() error {
	return r.CloseWithError(fmt.Errorf("resampler: %w", io.ErrClosedPipe))
}

// CloseWithError marks the resampler as closed with a custom error that
// subsequent Read calls will return.
func (r *converter) CloseWithError(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = err
	}
	r.resampler = nil
	return nil
}

// stereoToMono converts stereo 16-bit samples to mono in-place by averaging
// the left and right channels.
func stereoToMono(b []byte) int {
	numFrames := len(b) / 4
	for i := range numFrames {
		j := i * 4
		k := i * 2
		l := int16(b[j]) | int16(b[j+1])<<8
		r := int16(b[j+2]) | int16(b[j+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		b[k] = byte(m)
		b[k+1] = byte(m >> 8)
	}
	return numFrames * 2
}
