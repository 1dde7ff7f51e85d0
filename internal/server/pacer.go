// ABOUTME: Server pacing loop: chunks a source into groups, prebuffers, then paces at sub-real-time
// ABOUTME: Grounded on the original play_wav_file loop: 1000-sample groups, 3s prebuffer, 0.8 pacing factor
package server

import (
	"log"
	"time"

	"github.com/yassine-safraoui/sonos-challenge/internal/transport"
	"github.com/yassine-safraoui/sonos-challenge/pkg/audiomsg"
	"github.com/yassine-safraoui/sonos-challenge/pkg/audiosource"
)

const (
	// SamplesPerGroup is how many samples are batched into one Samples message.
	SamplesPerGroup = 1000
	// InitialBufferSeconds is the prebuffer window, sent without pacing delay.
	InitialBufferSeconds = 3
	// PacingFactor scales the real-time sleep between groups once the
	// prebuffer is exhausted, so the client's buffer drifts toward full
	// rather than empty under benign jitter. Empirical; see spec §9.
	PacingFactor = 0.8
)

// Pacer drives a Source through a Transport: it publishes the source's Spec
// as the broadcast preamble, then streams Samples messages in fixed-size
// groups, holding nothing back during the prebuffer window and pacing at
// PacingFactor of real time afterward.
type Pacer struct {
	transport *transport.Server
	source    audiosource.Source
}

// NewPacer constructs a Pacer over transport streaming from source.
func NewPacer(t *transport.Server, source audiosource.Source) *Pacer {
	return &Pacer{transport: t, source: source}
}

// Run streams the entire source to completion, blocking the caller. It
// returns once the source is exhausted; the transport may continue serving
// already-connected clients until the caller stops it.
func (p *Pacer) Run() {
	spec := p.source.Spec()

	specMsg := audiomsg.SerializeSpec(nil, spec)
	p.transport.UpdatePreamble(specMsg)
	p.transport.Broadcast(specMsg)

	prebufferSamples := uint64(spec.SampleRate) * InitialBufferSeconds
	groupSleep := time.Duration(float64(SamplesPerGroup) / float64(spec.SampleRate) * PacingFactor * float64(time.Second))

	group := make([]int16, 0, SamplesPerGroup)
	var sentSamples uint64

	flush := func() {
		if len(group) == 0 {
			return
		}
		msg := audiomsg.SerializeSamples(nil, group)
		p.transport.Broadcast(msg)
		sentSamples += uint64(len(group))
		group = group[:0]

		if sentSamples > prebufferSamples {
			time.Sleep(groupSleep)
		}
	}

	for {
		sample, ok := p.source.Next()
		if !ok {
			break
		}
		group = append(group, sample)
		if len(group) == SamplesPerGroup {
			flush()
		}
	}
	flush()

	log.Printf("server: source exhausted after %d samples", sentSamples)
}
