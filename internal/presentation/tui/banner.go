package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the EORA banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"  _____ ___  ____      _    ", "#38bdf8"},
		{" | ____/ _ \\|  _ \\    / \\   ", "#60a5fa"},
		{" |  _|| | | | |_) |  / _ \\  ", "#818cf8"},
		{" | |__| |_| |  _ <  / ___ \\ ", "#a78bfa"},
		{" |_____\\___/|_| \\_\\/_/   \\_\\", "#c084fc"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  AI-ассистент EORA v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
