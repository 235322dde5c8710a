package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cast"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) && !color.NoColor
	}

	return &OutputFormatter{useColor: useColor, writer: w}
}

// Handle implements Handler: it prints events as they occur.
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)
	d := event.Data

	switch event.Name {
	case ExpandBegin:
		return fmt.Sprintf("%s %s Expanding %s against %s with %d workers",
			latency,
			f.colorize("===", color.FgYellow),
			f.colorizeCount("templates", cast.ToInt(d["templates"])),
			f.colorizeCount("schemas", cast.ToInt(d["schemas"])),
			cast.ToInt(d["workers"]))

	case ExpandComplete:
		if errs := cast.ToInt(d["errors"]); errs > 0 {
			return fmt.Sprintf("%s %s Expansion done with %s from %s (%s)",
				latency,
				f.colorize("✗", color.FgRed),
				f.colorizeCount("rows", cast.ToInt(d["rows"])),
				f.colorizeCount("pairs", cast.ToInt(d["pairs"])),
				f.colorizeCount("errors", errs))
		}
		return fmt.Sprintf("%s %s Expansion done with %s from %s",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("rows", cast.ToInt(d["rows"])),
			f.colorizeCount("pairs", cast.ToInt(d["pairs"])))

	case TemplateCompiled:
		return fmt.Sprintf("%s Template #%d compiled: %s, %s",
			latency,
			cast.ToInt(d["template"]),
			f.colorizeCount("tags", cast.ToInt(d["tags"])),
			f.colorizeCount("constraints", cast.ToInt(d["constraints"])))

	case SolverComplete:
		return fmt.Sprintf("%s Solve(#%d, %s) %s %s (%d nodes, %d checks)",
			latency,
			cast.ToInt(d["template"]),
			f.colorize(cast.ToString(d["schema"]), color.FgCyan),
			f.arrow(),
			f.colorizeCount("solutions", cast.ToInt(d["solutions"])),
			cast.ToInt(d["nodes"]),
			cast.ToInt(d["checks"]))

	case PairResolved:
		return fmt.Sprintf("%s Resolve(#%d, %s) %s %s",
			latency,
			cast.ToInt(d["template"]),
			f.colorize(cast.ToString(d["schema"]), color.FgCyan),
			f.arrow(),
			f.colorizeCount("rows", cast.ToInt(d["rows"])))

	case ErrorTemplate:
		return fmt.Sprintf("%s %s Template #%d rejected: %v",
			latency,
			f.colorize("✗", color.FgRed),
			cast.ToInt(d["template"]),
			d["error"])

	case ErrorPair:
		return fmt.Sprintf("%s %s Template #%d on %s failed: %v",
			latency,
			f.colorize("✗", color.FgRed),
			cast.ToInt(d["template"]),
			cast.ToString(d["schema"]),
			d["error"])

	default:
		// Generic format for unknown events
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

func (f *OutputFormatter) arrow() string {
	if !f.useColor {
		return "→"
	}
	return color.YellowString("→")
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)
	if !f.useColor {
		return s
	}

	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, using color based on the label type.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)
	if !f.useColor {
		return text
	}

	switch strings.ToLower(label) {
	case "templates", "schemas":
		return color.CyanString(text)
	case "solutions", "rows":
		return color.MagentaString(text)
	case "errors":
		return color.RedString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler creates a handler that prints formatted events to stderr.
func ConsoleHandler() Handler {
	return NewOutputFormatter(os.Stderr).Handle
}
