// ABOUTME: Server application: wires a WAV source to the broadcast transport and drives the pacer
// ABOUTME: Grounded on the original Application::play_wav_file: wait for a client, stream, wait for drain
package server

import (
	"fmt"
	"log"
	"time"

	"github.com/yassine-safraoui/sonos-challenge/internal/transport"
	"github.com/yassine-safraoui/sonos-challenge/pkg/audiosource"
)

// Config configures the server application.
type Config struct {
	Addr string
	Wav  string
}

// App owns the transport and source for one run of the server.
type App struct {
	transport *transport.Server
	source    *audiosource.WavSource
}

// New opens the WAV file at cfg.Wav and binds the transport at cfg.Addr.
// Both failures are startup failures per spec §6: the process should exit
// non-zero without ever reaching the pacing loop.
func New(cfg Config) (*App, error) {
	source, err := audiosource.NewWavSource(cfg.Wav)
	if err != nil {
		return nil, fmt.Errorf("server: opening WAV source: %w", err)
	}

	preamble := &transport.Preamble{}
	srv := transport.NewServer(preamble)
	if err := srv.Start(cfg.Addr); err != nil {
		source.Close()
		return nil, fmt.Errorf("server: binding %s: %w", cfg.Addr, err)
	}

	return &App{transport: srv, source: source}, nil
}

// Run waits for at least one client, streams the WAV file to completion via
// the pacer, then waits for every connected client to disconnect before
// returning. This is not named explicitly in spec §4.6, but completes the
// pacing loop's lifecycle the way the original server binary does.
func (a *App) Run() {
	defer a.source.Close()

	for a.transport.ClientCount() == 0 {
		log.Printf("server: no clients connected, waiting...")
		time.Sleep(time.Second)
	}

	NewPacer(a.transport, a.source).Run()

	for a.transport.ClientCount() > 0 {
		log.Printf("server: waiting for clients to finish playback...")
		time.Sleep(time.Second)
	}
}

// Stop shuts down the transport's acceptor.
func (a *App) Stop() {
	a.transport.Stop()
}

// ClientCount exposes the transport's live connection count, mainly for
// tests and diagnostics.
func (a *App) ClientCount() int {
	return a.transport.ClientCount()
}
