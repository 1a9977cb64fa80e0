package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the lettergraph banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{` _      _   _               _____                 _     `, "#5eead4"},
		{`| | ___| |_| |_ ___ _ __  / ____|_ __ __ _ _ __ | |__  `, "#2dd4bf"},
		{`| |/ _ \ __| __/ _ \ '__|| |  __| '__/ _' | '_ \| '_ \ `, "#14b8a6"},
		{`| |  __/ |_| ||  __/ |   | |_|  | | | (_| | |_) | | | |`, "#0d9488"},
		{`|_|\___|\__|\__\___|_|    \_____|_|  \__,_| .__/|_| |_|`, "#0f766e"},
		{`                                          |_|          `, "#115e59"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
