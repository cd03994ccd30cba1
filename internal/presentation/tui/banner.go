package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	" _____                         _          ",
	"|__  /___  _ __   ___ _ __ _   _| | ___  ___ ",
	"  / // _ \\| '_ \\ / _ \\ '__| | | | |/ _ \\/ __|",
	" / /| (_) | | | |  __/ |  | |_| | |  __/\\__ \\",
	"/____\\___/|_| |_|\\___|_|   \\__,_|_|\\___||___/",
}

var bannerColors = []string{"#38bdf8", "#22d3ee", "#2dd4bf", "#34d399", "#4ade80"}

// PrintBanner writes the startup banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintf(w, "%44s\n\n", "v"+strings.TrimSpace(version))
}
