// Command viewer polls the room state service and renders the seat grid as
// text, one line per seat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/musicfriend/roomstate/internal/domain"
	"github.com/musicfriend/roomstate/internal/logging"
	"github.com/musicfriend/roomstate/internal/reconcile"
	"github.com/musicfriend/roomstate/internal/viewer"
)

// textRenderer prints the whole grid on every poll.
type textRenderer struct{}

func (textRenderer) Render(assignment reconcile.Assignment, states map[string]domain.UserState) {
	fmt.Printf("--- room @ %s ---\n", time.Now().Format(time.TimeOnly))
	for i, user := range assignment {
		if user == "" {
			fmt.Printf("seat %2d: (empty)\n", i+1)
			continue
		}
		state := states[user]
		song := state.Song
		if song == "" {
			song = "(nothing playing)"
		}
		fmt.Printf("seat %2d: %s [%s] %s\n", i+1, user, state.Platform, song)
	}
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "room state service base URL")
	seats := flag.Int("seats", reconcile.DefaultCapacity, "number of display seats")
	interval := flag.Duration("interval", viewer.DefaultPollInterval, "poll interval")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	logging.InitLogger(*logLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := viewer.NewPoller(*serverURL, *seats, textRenderer{}, clockwork.NewRealClock(), *interval)

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Viewer stopped", "error", err)
		os.Exit(1)
	}
}
