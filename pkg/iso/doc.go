// Package iso implements the core of a realtime bilingual speech
// translator: a session controller driving a provider transport, an
// event normalizer feeding a bounded diagnostic log, a translation
// decoder validating model output into segments, a chronological
// segment merger, and token usage accounting.
//
// Provider specifics live behind the Transport interface; see the
// openairt and geminilive packages for the two implementations.
package iso
