// Package audio provides audio capture and processing utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - pcm: PCM (Pulse Code Modulation) audio format handling
//   - resampler: sample rate conversion between PCM formats
//   - portaudio: microphone capture via the PortAudio C library
//   - mic: microphone capture resampled to a target PCM format
//
// Example usage:
//
//	import (
//	    "github.com/isotranslate/iso/pkg/audio/mic"
//	    "github.com/isotranslate/iso/pkg/audio/pcm"
//	)
//
//	src, err := mic.Open(pcm.L16Mono24K)
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
package audio
