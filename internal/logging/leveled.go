package logging

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"treeprune/internal/config"
)

// Leveled adapts a *log.Logger to the two-channel Info/Error interface used by
// the remover. Arguments after the message are key/value pairs.
type Leveled struct {
	logger *log.Logger
	info   *color.Color
	err    *color.Color
}

// NewLeveled wraps logger; colored selects blue INFO and red ERROR tags
func NewLeveled(logger *log.Logger, colored bool) *Leveled {
	if logger == nil {
		logger = log.Default()
	}
	l := &Leveled{
		logger: logger,
		info:   color.New(color.FgBlue),
		err:    color.New(color.FgRed, color.Bold),
	}
	if colored {
		l.info.EnableColor()
		l.err.EnableColor()
	} else {
		l.info.DisableColor()
		l.err.DisableColor()
	}
	return l
}

func (l *Leveled) Info(msg string, args ...interface{}) {
	l.logWithLevel(l.info.Sprint("[INFO]"), msg, args...)
}

func (l *Leveled) Error(msg string, args ...interface{}) {
	l.logWithLevel(l.err.Sprint("[ERROR]"), msg, args...)
}

func (l *Leveled) logWithLevel(tag, msg string, args ...interface{}) {
	var b strings.Builder
	b.WriteString(tag)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	l.logger.Println(b.String())
}

// UseColor decides whether level tags are colored for the given config.
// Auto mode colors only an interactive stdout without a log file.
func UseColor(cfg *config.Config) bool {
	mode := config.ColorAuto
	if cfg != nil && cfg.Logging.Color != "" {
		mode = cfg.Logging.Color
	}
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if cfg != nil && cfg.Logging.File != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
