// ABOUTME: Client WAV sink: persists received samples into a WAV file
// ABOUTME: Grounded on the original WavAudioOutput: hound-style writer that finalizes exactly once
package client

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/yassine-safraoui/sonos-challenge/pkg/audiomsg"
)

// ErrWriterOpen is returned when the output file cannot be created.
var ErrWriterOpen = errors.New("client: failed to open WAV writer")

// ErrWriterAppend is returned when writing samples to the WAV encoder fails.
var ErrWriterAppend = errors.New("client: failed to append samples to WAV file")

// ErrWriterFinalize is returned when finalizing the WAV file fails.
var ErrWriterFinalize = errors.New("client: failed to finalize WAV file")

// WavSink writes received samples to a WAV file. On the first Spec message
// it opens the file with that format; a later Spec matching the current one
// is ignored (idempotent, per spec §9's preamble-duplication tolerance).
// Finalize consumes the sink — it must not be used afterward.
type WavSink struct {
	path string

	file    *os.File
	encoder *wav.Encoder
	spec    audiomsg.Spec
	opened  bool

	scratch *goaudio.IntBuffer
}

// NewWavSink creates a sink that will write to path once a Spec arrives.
func NewWavSink(path string) *WavSink {
	return &WavSink{path: path}
}

// HandleSpec implements the "on Spec" half of spec §4.7.
func (s *WavSink) HandleSpec(spec audiomsg.Spec) error {
	if s.opened {
		if spec == s.spec {
			return nil // duplicate Spec, tolerated per spec §9
		}
		// A differing mid-stream Spec is explicitly undefined behavior
		// (spec §4.7); the file in progress is finalized and a fresh one
		// is created at the same path, replacing it.
		if err := s.finalizeEncoder(); err != nil {
			return err
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriterOpen, err)
	}

	s.file = f
	s.encoder = wav.NewEncoder(f, int(spec.SampleRate), int(spec.BitsPerSample), int(spec.Channels), 1)
	s.spec = spec
	s.opened = true
	s.scratch = &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: int(spec.Channels), SampleRate: int(spec.SampleRate)},
	}
	return nil
}

// HandleSamples implements the "on Samples" half of spec §4.7. Calling it
// before any Spec has arrived is a no-op, matching the original's behavior
// of only writing once output has been constructed.
func (s *WavSink) HandleSamples(samples []int16) error {
	if !s.opened {
		return nil
	}

	s.scratch.Data = s.scratch.Data[:0]
	for _, sample := range samples {
		s.scratch.Data = append(s.scratch.Data, int(sample))
	}
	if err := s.encoder.Write(s.scratch); err != nil {
		return fmt.Errorf("%w: %v", ErrWriterAppend, err)
	}
	return nil
}

// Finalize writes the RIFF headers and flushes the file. It consumes the
// sink: HandleSpec and HandleSamples must not be called afterward. A
// repeated Finalize is a no-op that returns nil.
func (s *WavSink) Finalize() error {
	if !s.opened {
		return nil
	}
	err := s.finalizeEncoder()
	s.opened = false
	return err
}

func (s *WavSink) finalizeEncoder() error {
	// The encoder writes the RIFF/fmt/data headers on its first Write; an
	// empty write makes sure they exist even when no samples arrived.
	s.scratch.Data = s.scratch.Data[:0]
	if err := s.encoder.Write(s.scratch); err != nil {
		s.file.Close()
		return fmt.Errorf("%w: %v", ErrWriterFinalize, err)
	}
	if err := s.encoder.Close(); err != nil {
		s.file.Close()
		return fmt.Errorf("%w: %v", ErrWriterFinalize, err)
	}
	return s.file.Close()
}
