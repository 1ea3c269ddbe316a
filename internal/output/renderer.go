package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/devgoel186/tracemon/internal/model"
)

// Renderer writes events to an output stream.
type Renderer interface {
	Render(ev model.Event) error
}

// New returns the renderer for the named format ("text" or "json").
func New(format string, w io.Writer, color bool) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		if color {
			return NewColorRenderer(w), nil
		}
		return NewTextRenderer(w), nil
	case "json":
		return NewJSONRenderer(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer
// ---------------------------------------------------------------------------

// TextRenderer prints one description per line, exactly as rendered by the
// matching rule. Downstream scripts depend on these strings.
type TextRenderer struct {
	w io.Writer
}

func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(ev model.Event) error {
	_, err := fmt.Fprintln(r.w, ev.Message)
	return err
}

// ---------------------------------------------------------------------------
// Color Renderer (terminal output)
// ---------------------------------------------------------------------------

var (
	styleDir    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // cyan
	styleDelete = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	styleLink   = lipgloss.NewStyle().Foreground(lipgloss.Color("141")) // purple
	styleCreate = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	styleWrite  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")) // yellow
	styleRead   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleOther  = lipgloss.NewStyle().Bold(true)
)

// ColorRenderer styles the description prefix (text before ": ") by kind.
type ColorRenderer struct {
	w io.Writer
}

func NewColorRenderer(w io.Writer) *ColorRenderer {
	return &ColorRenderer{w: w}
}

func (r *ColorRenderer) Render(ev model.Event) error {
	prefix, rest, found := strings.Cut(ev.Message, ": ")
	if !found {
		_, err := fmt.Fprintln(r.w, styleFor(ev.Kind).Render(ev.Message))
		return err
	}
	_, err := fmt.Fprintf(r.w, "%s: %s\n", styleFor(ev.Kind).Render(prefix), rest)
	return err
}

func styleFor(kind model.Kind) lipgloss.Style {
	switch kind {
	case model.KindMakeDir, model.KindRemoveDir, model.KindChangeDir:
		return styleDir
	case model.KindUnlink:
		return styleDelete
	case model.KindHardlink:
		return styleLink
	case model.KindCreate:
		return styleCreate
	case model.KindWrite:
		return styleWrite
	case model.KindRead:
		return styleRead
	default:
		return styleOther
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each event as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(ev model.Event) error {
	return r.enc.Encode(ev)
}
