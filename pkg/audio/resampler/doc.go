// Package resampler converts 16-bit PCM audio between sample rates and
// channel layouts through a streaming io.Reader interface.
//
// It sits between microphone capture and a realtime speech provider:
// capture runs at the device rate (often 48 kHz stereo) while providers
// expect mono PCM at a fixed rate (24 kHz or 16 kHz).
//
//	src := resampler.Format{SampleRate: 48000, Stereo: true}
//	dst := resampler.Format{SampleRate: 24000, Stereo: false}
//	r, err := resampler.New(captureReader, src, dst)
package resampler
