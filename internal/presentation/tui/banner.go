package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the statecraft banner to w, colored when w supports it.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"      _        _                            __ _   ", "#818cf8"},
		{"  ___| |_ __ _| |_ ___  ___ _ __ __ _ / _| |_ ", "#a78bfa"},
		{" / __| __/ _` | __/ _ \\/ __| '__/ _` | |_| __|", "#c084fc"},
		{" \\__ \\ || (_| | ||  __/ (__| | | (_| |  _| |_ ", "#e879f9"},
		{" |___/\\__\\__,_|\\__\\___|\\___|_|  \\__,_|_|  \\__|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
