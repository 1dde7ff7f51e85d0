// ABOUTME: Binary audio protocol codec for Spec and Samples messages
// ABOUTME: Serializes/deserializes the tagged-union wire format, fixed little-endian
package audiomsg

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SampleFormat identifies the PCM sample representation named in a Spec message.
type SampleFormat uint8

const (
	SampleFormatFloat SampleFormat = 1
	SampleFormatInt   SampleFormat = 2
)

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatFloat:
		return "float"
	case SampleFormatInt:
		return "int"
	default:
		return fmt.Sprintf("SampleFormat(%d)", uint8(f))
	}
}

// Spec describes the audio format carried by a stream.
type Spec struct {
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	SampleFormat  SampleFormat
}

const (
	tagSpec    byte = 0x01
	tagSamples byte = 0x02
)

const (
	specMessageLen  = 1 + 2 + 4 + 2 + 1 // tag + channels + sample_rate + bits_per_sample + sample_format
	samplesHeaderLen = 1 + 4            // tag + count
	sampleSize      = 2
)

var (
	// ErrUnknownType is returned when the leading tag byte is neither 1 nor 2.
	ErrUnknownType = errors.New("audiomsg: unknown message type tag")
	// ErrUnknownSampleFormat is returned when a Spec's format byte is outside {1, 2}.
	ErrUnknownSampleFormat = errors.New("audiomsg: unknown sample format tag")
	// ErrTruncatedMessage is returned when a message's declared length overruns the buffer.
	ErrTruncatedMessage = errors.New("audiomsg: truncated message")
	// ErrTrailingBytes is returned when bytes remain after a complete parse.
	ErrTrailingBytes = errors.New("audiomsg: trailing bytes after message")
)

// SerializeSpec appends the wire encoding of spec to buf and returns the result.
func SerializeSpec(buf []byte, spec Spec) []byte {
	buf = append(buf, tagSpec)
	buf = binary.LittleEndian.AppendUint16(buf, spec.Channels)
	buf = binary.LittleEndian.AppendUint32(buf, spec.SampleRate)
	buf = binary.LittleEndian.AppendUint16(buf, spec.BitsPerSample)
	buf = append(buf, byte(spec.SampleFormat))
	return buf
}

// SerializeSamples appends the wire encoding of samples to buf and returns the
// result. samples is copied once into the message representation; callers
// broadcasting the resulting bytes to many connections do not clone per client.
func SerializeSamples(buf []byte, samples []int16) []byte {
	buf = append(buf, tagSamples)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(samples)))
	for _, s := range samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}

// MessageKind identifies which variant Deserialize found.
type MessageKind int

const (
	KindSpec MessageKind = iota
	KindSamples
)

// Message is the deserialized form of a single frame payload: exactly one of
// Spec / Samples is meaningful, selected by Kind.
type Message struct {
	Kind    MessageKind
	Spec    Spec
	Samples []int16
}

// Deserialize parses exactly one message from b, requiring that b contain no
// trailing bytes beyond the complete message (strict framing).
func Deserialize(b []byte) (Message, error) {
	if len(b) == 0 {
		return Message{}, fmt.Errorf("%w: empty buffer", ErrTruncatedMessage)
	}

	switch b[0] {
	case tagSpec:
		if len(b) < specMessageLen {
			return Message{}, fmt.Errorf("%w: spec needs %d bytes, got %d", ErrTruncatedMessage, specMessageLen, len(b))
		}
		if len(b) > specMessageLen {
			return Message{}, fmt.Errorf("%w: %d extra bytes", ErrTrailingBytes, len(b)-specMessageLen)
		}

		format := SampleFormat(b[9])
		if format != SampleFormatFloat && format != SampleFormatInt {
			return Message{}, ErrUnknownSampleFormat
		}

		return Message{
			Kind: KindSpec,
			Spec: Spec{
				Channels:      binary.LittleEndian.Uint16(b[1:3]),
				SampleRate:    binary.LittleEndian.Uint32(b[3:7]),
				BitsPerSample: binary.LittleEndian.Uint16(b[7:9]),
				SampleFormat:  format,
			},
		}, nil

	case tagSamples:
		if len(b) < samplesHeaderLen {
			return Message{}, fmt.Errorf("%w: samples header needs %d bytes, got %d", ErrTruncatedMessage, samplesHeaderLen, len(b))
		}
		count := binary.LittleEndian.Uint32(b[1:5])
		// count is attacker-controlled; compute the expected total length
		// before ever allocating a slice of that size.
		expected := samplesHeaderLen + int(count)*sampleSize
		if len(b) < expected {
			return Message{}, fmt.Errorf("%w: samples needs %d bytes, got %d", ErrTruncatedMessage, expected, len(b))
		}
		if len(b) > expected {
			return Message{}, fmt.Errorf("%w: %d extra bytes", ErrTrailingBytes, len(b)-expected)
		}

		samples := make([]int16, count)
		for i := range samples {
			off := samplesHeaderLen + i*sampleSize
			samples[i] = int16(binary.LittleEndian.Uint16(b[off : off+sampleSize]))
		}

		return Message{Kind: KindSamples, Samples: samples}, nil

	default:
		return Message{}, fmt.Errorf("%w: 0x%02x", ErrUnknownType, b[0])
	}
}
