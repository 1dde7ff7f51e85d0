// ABOUTME: Entry point for the PCM playback client
// ABOUTME: Parses CLI flags/subcommands, validates arguments, and drives internal/client.App
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	clientapp "github.com/yassine-safraoui/sonos-challenge/internal/client"
	"github.com/yassine-safraoui/sonos-challenge/internal/client/speaker"
	"github.com/yassine-safraoui/sonos-challenge/internal/transport"
)

const listSpeakersCommand = "list-available-speakers"

func main() {
	if len(os.Args) > 1 && os.Args[1] == listSpeakersCommand {
		runListSpeakers()
		return
	}
	runStream()
}

func runListSpeakers() {
	names, err := speaker.ListDevices()
	if err != nil {
		log.Fatalf("failed to enumerate speakers: %v", err)
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func runStream() {
	fs := flag.NewFlagSet("pcmcast-client", flag.ExitOnError)
	ip := fs.String("ip", "", "Server IP address (required)")
	port := fs.Int("port", 8080, "Server TCP port")
	file := fs.String("file", "", "Write received audio to this WAV file (must end in .wav)")
	defaultSpeaker := fs.Bool("default-speaker", false, "Play received audio on the default output device")
	speakerName := fs.String("speaker", "", "Play received audio on the output device with this exact name")
	logFile := fs.String("log-file", "pcmcast-client.log", "Log file path")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(os.Args[1:])

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	if *debug {
		log.Printf("debug logging enabled")
	}

	if *ip == "" {
		log.Fatalf("--ip is required")
	}

	sink, err := buildSink(*file, *defaultSpeaker, *speakerName)
	if err != nil {
		log.Fatalf("argument validation failed: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", *ip, *port)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := transport.Connect(ctx, addr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", addr, err)
	}

	app := clientapp.New(conn, sink)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received %v, shutting down", sig)
		app.Stop()
	}()

	runErr := app.Run()

	if finalizer, ok := sink.(interface{ Finalize() error }); ok {
		if err := finalizer.Finalize(); err != nil {
			log.Fatalf("failed to finalize output: %v", err)
		}
	}
	if closer, ok := sink.(interface{ Close() error }); ok {
		closer.Close()
	}

	if runErr != nil {
		log.Fatalf("client error: %v", runErr)
	}
	log.Printf("client stopped")
}

// buildSink validates the mutually-exclusive, collectively-required output
// selector group and constructs the corresponding sink, per the rules
// carried over from the original CLI parser.
func buildSink(file string, defaultSpeaker bool, speakerName string) (clientapp.Sink, error) {
	chosen := 0
	if file != "" {
		chosen++
	}
	if defaultSpeaker {
		chosen++
	}
	if speakerName != "" {
		chosen++
	}
	if chosen != 1 {
		return nil, fmt.Errorf("exactly one of --file, --default-speaker, --speaker is required")
	}

	switch {
	case file != "":
		if !strings.HasSuffix(file, ".wav") {
			return nil, fmt.Errorf("--file must end in .wav: %q", file)
		}
		if dir := filepath.Dir(file); dir != "." {
			info, err := os.Stat(dir)
			if err != nil {
				return nil, fmt.Errorf("--file parent directory does not exist: %w", err)
			}
			if !info.IsDir() {
				return nil, fmt.Errorf("--file parent path is not a directory: %q", dir)
			}
		}
		return clientapp.NewWavSink(file), nil

	case defaultSpeaker:
		return clientapp.NewSpeakerSink(""), nil

	default:
		names, err := speaker.ListDevices()
		if err != nil {
			return nil, fmt.Errorf("enumerating devices to validate --speaker: %w", err)
		}
		found := false
		for _, name := range names {
			if name == speakerName {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("--speaker %q does not match any enumerated device", speakerName)
		}
		return clientapp.NewSpeakerSink(speakerName), nil
	}
}
