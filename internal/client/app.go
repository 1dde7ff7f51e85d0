// ABOUTME: Client application: drives the receive loop and dispatches decoded messages to a sink
// ABOUTME: Grounded on the original Application::run_client: read, decode, dispatch, stop on disconnect or signal
package client

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/yassine-safraoui/sonos-challenge/internal/client/speaker"
	"github.com/yassine-safraoui/sonos-challenge/internal/transport"
	"github.com/yassine-safraoui/sonos-challenge/pkg/audiomsg"
	"github.com/yassine-safraoui/sonos-challenge/pkg/frame"
)

// Sink receives decoded protocol messages. WavSink and speaker.Sink each
// implement the subset they care about; App dispatches to whichever the
// caller configured.
type Sink interface {
	HandleSpec(spec audiomsg.Spec) error
	HandleSamples(samples []int16) error
}

// speakerSink adapts speaker.Sink to the Sink interface: it has no error
// path of its own (the busy-poll push path never fails), and building the
// actual *speaker.Sink is deferred until the first Spec arrives, since the
// device can only be opened once the stream's format is known.
type speakerSink struct {
	deviceName string
	sink       *speaker.Sink
}

func (s *speakerSink) HandleSpec(spec audiomsg.Spec) error {
	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			log.Printf("client: closing previous speaker device: %v", err)
		}
	}
	sink, err := speaker.Open(s.deviceName, spec)
	if err != nil {
		return fmt.Errorf("client: opening speaker device: %w", err)
	}
	s.sink = sink
	return nil
}

func (s *speakerSink) HandleSamples(samples []int16) error {
	if s.sink == nil {
		return nil
	}
	s.sink.PushSamples(samples)
	return nil
}

func (s *speakerSink) Close() error {
	if s.sink == nil {
		return nil
	}
	return s.sink.Close()
}

// NewSpeakerSink builds a Sink that plays received samples on deviceName
// (or the platform default, if empty).
func NewSpeakerSink(deviceName string) *speakerSink {
	return &speakerSink{deviceName: deviceName}
}

// App owns the transport connection and drives decoded messages into a sink
// until the server disconnects or Stop is called.
type App struct {
	client   *transport.Client
	sink     Sink
	stopping atomic.Bool
}

// New wraps an already-connected transport.Client and a configured sink.
func New(c *transport.Client, sink Sink) *App {
	return &App{client: c, sink: sink}
}

// Run blocks, receiving and dispatching frames until the server closes the
// connection, Stop is called, or a fatal protocol error occurs. Orderly
// disconnect returns nil; protocol violations return a wrapped error, per
// spec §6's client exit-code contract.
func (a *App) Run() error {
	for !a.stopping.Load() {
		payload, err := a.client.Receive()
		if err != nil {
			if errors.Is(err, frame.ErrConnectionClosed) || a.stopping.Load() {
				return nil
			}
			return fmt.Errorf("client: receiving frame: %w", err)
		}
		// An empty frame is the connection preamble of a server that has
		// not published a Spec yet; it carries no message.
		if len(payload) == 0 {
			continue
		}

		msg, err := audiomsg.Deserialize(payload)
		if err != nil {
			return fmt.Errorf("client: decoding message: %w", err)
		}

		switch msg.Kind {
		case audiomsg.KindSpec:
			if err := a.sink.HandleSpec(msg.Spec); err != nil {
				return fmt.Errorf("client: handling spec: %w", err)
			}
		case audiomsg.KindSamples:
			if err := a.sink.HandleSamples(msg.Samples); err != nil {
				return fmt.Errorf("client: handling samples: %w", err)
			}
		}
	}
	return nil
}

// Stop requests that Run return on its next loop iteration and closes the
// underlying connection, unblocking any in-flight Receive.
func (a *App) Stop() {
	a.stopping.Store(true)
	a.client.Close()
}
