package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepnoodle-ai/memfs"
	"github.com/deepnoodle-ai/memfs/watch"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

var (
	headerStyle  = color.New(color.FgCyan, color.Bold)
	successStyle = color.New(color.FgGreen)
	errorStyle   = color.New(color.FgRed, color.Bold)
	dirStyle     = color.New(color.FgBlue, color.Bold)
	mutedStyle   = color.New(color.FgHiBlack)
	timeStyle    = color.New(color.FgWhite, color.Faint)
)

const (
	bullet    = "•"
	checkmark = "✓"
	xmark     = "✗"
)

// Output formats accepted by --format.
const (
	formatJSON = "json"
	formatText = "text"
)

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatText:
		return nil
	}
	return fmt.Errorf("unsupported format %q (use %s or %s)", format, formatJSON, formatText)
}

// writeEnvelope prints env as one JSON line or as human readable text.
func writeEnvelope(w io.Writer, env *memfs.Envelope, format string) error {
	if format == formatText {
		_, err := io.WriteString(w, renderEnvelope(env))
		return err
	}
	data := append(env.JSON(), '\n')
	_, err := w.Write(data)
	return err
}

func renderEnvelope(env *memfs.Envelope) string {
	var sb strings.Builder
	switch {
	case !env.Success:
		sb.WriteString(errorStyle.Sprintf("%s %s", xmark, env.ErrorKind))
		sb.WriteString(": ")
		sb.WriteString(env.Message)
		sb.WriteString("\n")
	case env.Listing != nil:
		sb.WriteString(renderListing(env.Listing))
	default:
		sb.WriteString(env.Output)
		if env.Output != "" && !strings.HasSuffix(env.Output, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString(successStyle.Sprint(checkmark))
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderListing prints one entry per line with the type column aligned.
func renderListing(entries []memfs.Entry) string {
	if len(entries) == 0 {
		return mutedStyle.Sprint("(empty)") + "\n"
	}
	width := 0
	for _, entry := range entries {
		if w := displayWidth(entry.String()); w > width {
			width = w
		}
	}
	var sb strings.Builder
	for _, entry := range entries {
		name := runewidth.FillRight(entry.String(), width)
		if entry.IsDir() {
			name = dirStyle.Sprint(name)
		}
		fmt.Fprintf(&sb, "%s %s  %s\n", bullet, name, mutedStyle.Sprint(entry.Type))
	}
	return sb.String()
}

func renderEvent(event watch.Event, at string) string {
	return fmt.Sprintf("%s  %s  %s\n",
		timeStyle.Sprint(at),
		headerStyle.Sprint(runewidth.FillRight(string(event.Op), len(watch.OpCreate))),
		event.Path)
}

func displayWidth(text string) int {
	return runewidth.StringWidth(text)
}
