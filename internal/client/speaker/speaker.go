// ABOUTME: Real-time speaker sink: negotiates a malgo playback device and drains the ring buffer on its callback
// ABOUTME: Grounded on the original Malgo output: device config negotiation, format-specific byte packing in the callback
package speaker

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/gen2brain/malgo"

	"github.com/yassine-safraoui/sonos-challenge/pkg/audiomsg"
)

// ErrDeviceNotFound is returned when a requested device name has no exact
// match among the platform's enumerated playback devices.
var ErrDeviceNotFound = errors.New("speaker: no playback device matches the requested name")

// ErrUnsupportedFormat names the failure of finding no device format this
// sink knows how to fill. Open does not return it: it always configures the
// device for s16. miniaudio (and therefore malgo) exposes
// u8/s16/s24/s32/f32, not u16; fillOutput also handles f32, but Open never
// selects it. fillU16 is kept and tested as a pure conversion in case a
// future output backend exposes a genuine u16 device format.
var ErrUnsupportedFormat = errors.New("speaker: device does not support a usable sample format")

const ringBufferHeadroomSeconds = 1

// ListDevices enumerates playback device names in platform order, for the
// CLI's list-available-speakers subcommand.
func ListDevices() ([]string, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("speaker: failed to initialize audio context: %w", err)
	}
	defer ctx.Uninit()
	defer ctx.Free()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("speaker: failed to enumerate playback devices: %w", err)
	}

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}

// Sink drives a real-time playback device fed by a lock-free ring buffer.
// PushSamples is the producer side, called from the client's receive loop;
// the device callback is the consumer side, invoked on malgo's own thread.
type Sink struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	ring   *RingBuffer
	// scratch is the callback's mono staging buffer, allocated once in Open.
	scratch []int16

	channels uint32
	format   malgo.FormatType
}

// Open negotiates a playback device matching deviceName (or the platform
// default, if deviceName is empty) against spec, and starts the real-time
// callback. The caller owns the returned Sink and must Close it.
func Open(deviceName string, spec audiomsg.Spec) (*Sink, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("speaker: failed to initialize audio context: %w", err)
	}

	var deviceID *malgo.DeviceID
	if deviceName != "" {
		id, err := resolveDeviceID(ctx, deviceName)
		if err != nil {
			ctx.Uninit()
			ctx.Free()
			return nil, err
		}
		deviceID = id
	}

	format := malgo.FormatS16
	channels := uint32(spec.Channels)
	if channels < 1 {
		channels = 1
	}

	ring := NewRingBuffer(int(spec.SampleRate) * ringBufferHeadroomSeconds)

	s := &Sink{ctx: ctx, ring: ring, scratch: make([]int16, len(ring.buf)), channels: channels, format: format}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = channels
	if deviceID != nil {
		deviceConfig.Playback.DeviceID = deviceID.Pointer()
	}
	deviceConfig.SampleRate = spec.SampleRate

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			s.fillOutput(output, frameCount)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("speaker: failed to initialize playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("speaker: failed to start playback device: %w", err)
	}
	s.device = device

	return s, nil
}

func resolveDeviceID(ctx *malgo.AllocatedContext, name string) (*malgo.DeviceID, error) {
	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("speaker: failed to enumerate playback devices: %w", err)
	}
	for i := range infos {
		if infos[i].Name() == name {
			return &infos[i].ID, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

// PushSamples is the producer side of the push path (spec §4.8): it
// busy-polls vacancy before pushing so that the push never partially
// completes. A short sleep between polls would also satisfy the contract;
// this implementation spins because the groups pushed are small and the
// wait is expected to be brief.
func (s *Sink) PushSamples(samples []int16) {
	for len(samples) > 0 {
		if s.ring.Vacant() < len(samples) {
			continue
		}
		n := s.ring.Push(samples)
		samples = samples[n:]
	}
}

// fillOutput is the real-time callback: it must not allocate, lock, or do
// I/O. It pulls from the ring buffer's consumer side, duplicating mono
// samples across every requested channel, and fills any shortfall with the
// zero value of the negotiated format.
func (s *Sink) fillOutput(output []byte, frameCount uint32) {
	bytesPerFrame := int(s.channels) * 2
	if s.format == malgo.FormatF32 {
		bytesPerFrame = int(s.channels) * 4
	}
	for remaining := int(frameCount); remaining > 0; {
		mono := s.scratch[:min(remaining, len(s.scratch))]
		n := s.ring.Pop(mono)

		switch s.format {
		case malgo.FormatS16:
			fillS16(output, mono, n, int(s.channels))
		case malgo.FormatF32:
			fillF32(output, mono, n, int(s.channels))
		}
		output = output[len(mono)*bytesPerFrame:]
		remaining -= len(mono)
	}
}

func fillS16(output []byte, mono []int16, filled, channels int) {
	for frame := 0; frame < len(mono); frame++ {
		var v int16
		if frame < filled {
			v = mono[frame]
		}
		for ch := 0; ch < channels; ch++ {
			off := (frame*channels + ch) * 2
			output[off] = byte(v)
			output[off+1] = byte(v >> 8)
		}
	}
}

func fillU16(output []byte, mono []int16, filled, channels int) {
	for frame := 0; frame < len(mono); frame++ {
		var u uint16 = 32768
		if frame < filled {
			u = uint16(int32(mono[frame]) + 32768)
		}
		for ch := 0; ch < channels; ch++ {
			off := (frame*channels + ch) * 2
			output[off] = byte(u)
			output[off+1] = byte(u >> 8)
		}
	}
}

func fillF32(output []byte, mono []int16, filled, channels int) {
	for frame := 0; frame < len(mono); frame++ {
		var f float32
		if frame < filled {
			f = float32(mono[frame]) / 32768.0
		}
		bits := math.Float32bits(f)
		for ch := 0; ch < channels; ch++ {
			off := (frame*channels + ch) * 4
			output[off] = byte(bits)
			output[off+1] = byte(bits >> 8)
			output[off+2] = byte(bits >> 16)
			output[off+3] = byte(bits >> 24)
		}
	}
}

// Close stops the device and releases the audio context.
func (s *Sink) Close() error {
	if s.device != nil {
		if err := s.device.Stop(); err != nil {
			log.Printf("speaker: device stop error: %v", err)
		}
		s.device.Uninit()
	}
	if err := s.ctx.Uninit(); err != nil {
		s.ctx.Free()
		return fmt.Errorf("speaker: failed to uninitialize audio context: %w", err)
	}
	s.ctx.Free()
	return nil
}
