package cli

import (
	"os"

	"golang.org/x/term"

	"github.com/meteoboard/meteoboard/internal/weather/render"
)

// TerminalWidth returns override when positive, else the width of f when
// it is a terminal, else render.DefaultWidth.
func TerminalWidth(f *os.File, override int) int {
	if override > 0 {
		return override
	}
	if f != nil && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return render.DefaultWidth
}
