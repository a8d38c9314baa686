// Package openairt connects to the OpenAI Realtime API for live speech
// translation. Two session variants exist: a WebRTC peer connection with
// the oai-events data channel (the default, lower latency) and a plain
// WebSocket (for networks where UDP does not work).
//
// Transport adapts either variant to the iso.Transport contract:
// microphone PCM is streamed through input_audio_buffer.append events and
// translation output arrives as content parts or transcribe tool calls.
package openairt
