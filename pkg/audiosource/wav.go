// ABOUTME: WAV-file-backed audio source
// ABOUTME: Wraps go-audio/wav to satisfy the Source contract for the streaming pipeline
package audiosource

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/yassine-safraoui/sonos-challenge/pkg/audiomsg"
)

// ErrSourceOpen is returned when the backing WAV file cannot be opened or its
// header cannot be decoded.
var ErrSourceOpen = errors.New("audiosource: failed to open WAV source")

// samplesPerRead bounds how many samples WavSource pulls from the decoder at
// once; the buffer is refilled transparently as Next is called.
const samplesPerRead = 4096

// WavSource reads mono 16-bit PCM samples from a WAV file via go-audio/wav.
// It satisfies Source: Spec is fixed at construction, and Next yields samples
// until the file is exhausted or a decode error occurs, at which point it
// behaves as end-of-stream per the Source contract.
type WavSource struct {
	file    *os.File
	decoder *wav.Decoder
	spec    audiomsg.Spec

	intBuf  *goaudio.IntBuffer
	pending []int
	cursor  int
	done    bool
}

// NewWavSource opens path and checks that it holds a decodable WAV header.
// It does not reject files outside the supported path of spec §3 (mono,
// 16-bit PCM): channel count and bit depth are taken from the header as is.
func NewWavSource(path string) (*WavSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceOpen, err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrSourceOpen)
	}
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrSourceOpen, err)
	}

	format := audiomsg.SampleFormatInt
	spec := audiomsg.Spec{
		Channels:      uint16(decoder.NumChans),
		SampleRate:    decoder.SampleRate,
		BitsPerSample: uint16(decoder.BitDepth),
		SampleFormat:  format,
	}

	return &WavSource{
		file:    f,
		decoder: decoder,
		spec:    spec,
		intBuf: &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: int(spec.Channels), SampleRate: int(spec.SampleRate)},
			Data:   make([]int, samplesPerRead),
		},
	}, nil
}

// Spec implements Source.
func (s *WavSource) Spec() audiomsg.Spec { return s.spec }

// Next implements Source.
func (s *WavSource) Next() (int16, bool) {
	if s.done {
		return 0, false
	}
	if s.cursor >= len(s.pending) {
		if !s.refill() {
			return 0, false
		}
	}
	sample := int16(s.pending[s.cursor])
	s.cursor++
	return sample, true
}

func (s *WavSource) refill() bool {
	s.intBuf.Data = s.intBuf.Data[:cap(s.intBuf.Data)]
	n, err := s.decoder.PCMBuffer(s.intBuf)
	if err != nil && !errors.Is(err, io.EOF) {
		s.done = true
		return false
	}
	if n == 0 {
		s.done = true
		return false
	}
	s.pending = s.intBuf.Data[:n]
	s.cursor = 0
	return true
}

// Close implements Source.
func (s *WavSource) Close() error {
	return s.file.Close()
}
