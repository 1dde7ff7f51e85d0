// ABOUTME: Tests for the audio protocol codec
// ABOUTME: Covers the representative round-trip set and each error classification
package audiomsg

import (
	"errors"
	"math"
	"testing"
)

func TestSpecRoundTrip(t *testing.T) {
	specs := []Spec{
		{Channels: 1, SampleRate: 44100, BitsPerSample: 16, SampleFormat: SampleFormatInt},
		{Channels: 2, SampleRate: 48000, BitsPerSample: 24, SampleFormat: SampleFormatFloat},
	}

	for _, spec := range specs {
		buf := SerializeSpec(nil, spec)
		msg, err := Deserialize(buf)
		if err != nil {
			t.Fatalf("Deserialize: %v", err)
		}
		if msg.Kind != KindSpec {
			t.Fatalf("got kind %v, want KindSpec", msg.Kind)
		}
		if msg.Spec != spec {
			t.Errorf("got %+v, want %+v", msg.Spec, spec)
		}
	}
}

func TestSamplesRoundTrip(t *testing.T) {
	sets := [][]int16{
		{},
		{0},
		{math.MinInt16, -1, 0, 1, math.MaxInt16},
		repeat(17, 1000),
	}

	for _, samples := range sets {
		buf := SerializeSamples(nil, samples)
		msg, err := Deserialize(buf)
		if err != nil {
			t.Fatalf("Deserialize: %v", err)
		}
		if msg.Kind != KindSamples {
			t.Fatalf("got kind %v, want KindSamples", msg.Kind)
		}
		if len(msg.Samples) != len(samples) {
			t.Fatalf("got %d samples, want %d", len(msg.Samples), len(samples))
		}
		for i := range samples {
			if msg.Samples[i] != samples[i] {
				t.Errorf("sample %d: got %d, want %d", i, msg.Samples[i], samples[i])
			}
		}
	}
}

func repeat(v int16, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDeserializeUnknownType(t *testing.T) {
	_, err := Deserialize([]byte{0x03, 0, 0, 0})
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("got %v, want ErrUnknownType", err)
	}
}

func TestDeserializeUnknownSampleFormat(t *testing.T) {
	buf := []byte{tagSpec, 1, 0, 0x44, 0xAC, 0, 0, 16, 0, 99}
	_, err := Deserialize(buf)
	if !errors.Is(err, ErrUnknownSampleFormat) {
		t.Fatalf("got %v, want ErrUnknownSampleFormat", err)
	}
}

func TestDeserializeTruncatedSpec(t *testing.T) {
	buf := SerializeSpec(nil, Spec{Channels: 1, SampleRate: 44100, BitsPerSample: 16, SampleFormat: SampleFormatInt})
	_, err := Deserialize(buf[:len(buf)-2])
	if !errors.Is(err, ErrTruncatedMessage) {
		t.Fatalf("got %v, want ErrTruncatedMessage", err)
	}
}

func TestDeserializeTruncatedSamples(t *testing.T) {
	buf := SerializeSamples(nil, []int16{1, 2, 3})
	_, err := Deserialize(buf[:len(buf)-1])
	if !errors.Is(err, ErrTruncatedMessage) {
		t.Fatalf("got %v, want ErrTruncatedMessage", err)
	}
}

func TestDeserializeTrailingBytes(t *testing.T) {
	buf := SerializeSamples(nil, []int16{1, 2, 3})
	buf = append(buf, 0xFF)
	_, err := Deserialize(buf)
	if !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("got %v, want ErrTrailingBytes", err)
	}
}

func TestDeserializeEmptyBuffer(t *testing.T) {
	_, err := Deserialize(nil)
	if !errors.Is(err, ErrTruncatedMessage) {
		t.Fatalf("got %v, want ErrTruncatedMessage", err)
	}
}

func TestSerializeSamplesDoesNotAliasInput(t *testing.T) {
	samples := []int16{1, 2, 3}
	buf := SerializeSamples(nil, samples)
	samples[0] = 99
	msg, err := Deserialize(buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if msg.Samples[0] != 1 {
		t.Errorf("message aliased caller's slice: got %d, want 1", msg.Samples[0])
	}
}
