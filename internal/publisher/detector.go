package publisher

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Detection is what a platform detector reports for one poll.
type Detection struct {
	Song   string
	Artist string
}

// Detector reports the currently playing track. The second return is false
// when nothing is playing. Platform-specific media inspection lives outside
// this module; detectors only hand over the (song, artist) tuple.
type Detector interface {
	Current(ctx context.Context) (Detection, bool, error)
}

// CommandDetector runs an external detector program on every poll and parses
// its first output line as "Title - Artist". Empty output means nothing is
// playing. This is the seam for the OS-level window-title detectors.
type CommandDetector struct {
	Name string
	Args []string
}

func (d *CommandDetector) Current(ctx context.Context) (Detection, bool, error) {
	out, err := exec.CommandContext(ctx, d.Name, d.Args...).Output()
	if err != nil {
		return Detection{}, false, fmt.Errorf("detector command failed: %w", err)
	}

	line, _, _ := strings.Cut(string(out), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return Detection{}, false, nil
	}

	title, artist, found := strings.Cut(line, " - ")
	if !found {
		return Detection{Song: line}, true, nil
	}
	return Detection{Song: strings.TrimSpace(title), Artist: strings.TrimSpace(artist)}, true, nil
}
