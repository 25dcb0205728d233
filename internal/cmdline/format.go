package cmdline

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

var stdoutIsTTY = isatty.IsTerminal(os.Stdout.Fd())

const (
	ansiYellow = "\033[33m"
	ansiReset  = "\033[0m"
)

// warnf prints a non-fatal warning, colorized only when stdout is a real
// terminal.
func warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if stdoutIsTTY {
		fmt.Fprintf(os.Stderr, "%swarning:%s %s\n", ansiYellow, ansiReset, msg)
		return
	}
	fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
}

// relativeTime renders a human-readable "3 hours ago" string, or "never"
// when t is nil (an entry that has not yet been opened).
func relativeTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.Time(*t)
}
