// ABOUTME: Audio source abstraction for streaming PCM from a bounded origin
// ABOUTME: Defines the Source contract; implementations in this package back it with a WAV file
package audiosource

import "github.com/yassine-safraoui/sonos-challenge/pkg/audiomsg"

// Source yields exactly one Spec and a lazy, finite, non-restartable sequence
// of i16 samples consistent with that spec. A microphone-backed source would
// satisfy the same contract without changing any caller.
type Source interface {
	// Spec returns the format of the samples this source yields.
	Spec() audiomsg.Spec

	// Next returns the next sample in the sequence. It returns ok=false once
	// the source is exhausted (io.EOF reached, not an error) or when a
	// mid-stream decode failure occurs — callers treat both the same way:
	// as end-of-stream, per the source's failure contract.
	Next() (sample int16, ok bool)

	// Close releases any resources held by the source.
	Close() error
}
