package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the libris banner to w, coloured when w is a terminal.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text, color string
	}{
		{" _ _ _          _     ", "#818cf8"},
		{"| (_) |__  _ __(_)___ ", "#a78bfa"},
		{"| | | '_ \\| '__| / __|", "#c084fc"},
		{"| | | |_) | |  | \\__ \\", "#e879f9"},
		{"|_|_|_.__/|_|  |_|___/", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
