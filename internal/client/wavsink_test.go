// ABOUTME: Tests for the client WAV sink
// ABOUTME: Covers end-to-end spec+samples+finalize round trip and duplicate-Spec tolerance
package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"github.com/yassine-safraoui/sonos-challenge/pkg/audiomsg"
)

func TestWavSinkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	spec := audiomsg.Spec{Channels: 1, SampleRate: 44100, BitsPerSample: 16, SampleFormat: audiomsg.SampleFormatInt}
	samples := make([]int16, 44100)
	for i := range samples {
		samples[i] = 0x1234
	}

	sink := NewWavSink(path)
	if err := sink.HandleSpec(spec); err != nil {
		t.Fatalf("HandleSpec: %v", err)
	}
	if err := sink.HandleSamples(samples[:22050]); err != nil {
		t.Fatalf("HandleSamples (first half): %v", err)
	}
	if err := sink.HandleSamples(samples[22050:]); err != nil {
		t.Fatalf("HandleSamples (second half): %v", err)
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open written file: %v", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}

	if decoder.NumChans != uint16(spec.Channels) {
		t.Errorf("NumChans = %d, want %d", decoder.NumChans, spec.Channels)
	}
	if decoder.SampleRate != spec.SampleRate {
		t.Errorf("SampleRate = %d, want %d", decoder.SampleRate, spec.SampleRate)
	}
	if decoder.BitDepth != uint16(spec.BitsPerSample) {
		t.Errorf("BitDepth = %d, want %d", decoder.BitDepth, spec.BitsPerSample)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(buf.Data), len(samples))
	}
	for i, s := range samples {
		if int16(buf.Data[i]) != s {
			t.Fatalf("sample %d: got %d, want %d", i, buf.Data[i], s)
		}
	}
}

func TestWavSinkIgnoresDuplicateSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")
	spec := audiomsg.Spec{Channels: 2, SampleRate: 48000, BitsPerSample: 16, SampleFormat: audiomsg.SampleFormatInt}

	sink := NewWavSink(path)
	if err := sink.HandleSpec(spec); err != nil {
		t.Fatalf("HandleSpec (first): %v", err)
	}
	encoderBefore := sink.encoder
	if err := sink.HandleSpec(spec); err != nil {
		t.Fatalf("HandleSpec (duplicate): %v", err)
	}
	if sink.encoder != encoderBefore {
		t.Errorf("duplicate Spec replaced the encoder; want no-op")
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}

func TestWavSinkReopensOnDifferingSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	first := audiomsg.Spec{Channels: 1, SampleRate: 44100, BitsPerSample: 16, SampleFormat: audiomsg.SampleFormatInt}
	second := audiomsg.Spec{Channels: 2, SampleRate: 48000, BitsPerSample: 16, SampleFormat: audiomsg.SampleFormatInt}

	sink := NewWavSink(path)
	if err := sink.HandleSpec(first); err != nil {
		t.Fatalf("HandleSpec (first): %v", err)
	}
	if err := sink.HandleSamples([]int16{1, 2, 3}); err != nil {
		t.Fatalf("HandleSamples: %v", err)
	}
	if err := sink.HandleSpec(second); err != nil {
		t.Fatalf("HandleSpec (second): %v", err)
	}
	if sink.spec != second {
		t.Fatalf("sink.spec = %+v, want %+v", sink.spec, second)
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	decoder := wav.NewDecoder(f)
	if _, err := decoder.FullPCMBuffer(); err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}
	if decoder.NumChans != uint16(second.Channels) {
		t.Errorf("file reflects NumChans %d, want reopened spec's %d", decoder.NumChans, second.Channels)
	}
}

func TestWavSinkSamplesBeforeSpecIsNoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")
	sink := NewWavSink(path)

	if err := sink.HandleSamples([]int16{1, 2, 3}); err != nil {
		t.Fatalf("HandleSamples before Spec: %v", err)
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("file was created before any Spec arrived")
	}
}

func TestWavSinkFinalizeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")
	sink := NewWavSink(path)
	spec := audiomsg.Spec{Channels: 1, SampleRate: 8000, BitsPerSample: 16, SampleFormat: audiomsg.SampleFormatInt}
	if err := sink.HandleSpec(spec); err != nil {
		t.Fatalf("HandleSpec: %v", err)
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize (first): %v", err)
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize (second, after consume): %v", err)
	}
}
