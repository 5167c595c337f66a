// Command publisher watches a song detector and publishes "now playing"
// updates to the room state service.
//
// The detector is any external program that prints the current track as a
// single "Title - Artist" line (empty output means nothing is playing); the
// OS-specific media inspection stays outside this module.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/musicfriend/roomstate/internal/artwork"
	"github.com/musicfriend/roomstate/internal/logging"
	"github.com/musicfriend/roomstate/internal/publisher"
)

func main() {
	user := flag.String("user", "", "display name to publish as (required)")
	platform := flag.String("platform", "netease", "platform tag: spotify, netease")
	serverURL := flag.String("server", "http://localhost:8080", "room state service base URL")
	detectorCmd := flag.String("detector", "", "detector command printing 'Title - Artist' (required)")
	interval := flag.Duration("interval", publisher.DefaultPollInterval, "detector poll interval")
	usePush := flag.Bool("push", false, "publish over the websocket push transport")
	withArtwork := flag.Bool("artwork", true, "look up cover art on NetEase")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logging.InitLogger(*logLevel, "text")

	if *user == "" || *detectorCmd == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var transport publisher.Transport
	if *usePush {
		ws, err := publisher.DialWS(ctx, *serverURL)
		if err != nil {
			slog.Error("Failed to connect push transport", "error", err)
			os.Exit(1)
		}
		defer ws.Close()
		transport = ws
	} else {
		transport = publisher.NewHTTPTransport(*serverURL)
	}

	var resolver artwork.Resolver
	if *withArtwork {
		resolver = artwork.NewNetEaseResolver("")
	}

	parts := strings.Fields(*detectorCmd)
	detector := &publisher.CommandDetector{Name: parts[0], Args: parts[1:]}

	pub := publisher.New(*user, *platform, transport, resolver, clockwork.NewRealClock(), *interval)

	slog.Info("Publisher starting", "user", *user, "platform", *platform, "server", *serverURL)
	if err := pub.Run(ctx, detector); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Publisher stopped", "error", err)
		os.Exit(1)
	}
}
