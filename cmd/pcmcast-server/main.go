// ABOUTME: Entry point for the PCM broadcast server
// ABOUTME: Parses CLI flags and drives internal/server.App through its lifecycle
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yassine-safraoui/sonos-challenge/internal/server"
)

var (
	wavPath = flag.String("wav", "", "WAV file to stream (required)")
	port    = flag.Int("port", 8080, "TCP port to bind")
	logFile = flag.String("log-file", "pcmcast-server.log", "Log file path")
	debug   = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	if *wavPath == "" {
		log.Fatalf("--wav is required")
	}

	if *debug {
		log.Printf("debug logging enabled")
	}
	log.Printf("logging to: %s", *logFile)

	addr := fmt.Sprintf("0.0.0.0:%d", *port)
	app, err := server.New(server.Config{Addr: addr, Wav: *wavPath})
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received %v, shutting down", sig)
		app.Stop()
	}()

	log.Printf("streaming %s on %s", *wavPath, addr)
	app.Run()
	log.Printf("server stopped")
}
