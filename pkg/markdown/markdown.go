// Package markdown renders repository write-ups for the terminal.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"
)

const DefaultWidth = 80

type rendererKey struct {
	width int
	dark  bool
}

// Renderer caches one glamour renderer per width and background.
type Renderer struct {
	mu        sync.Mutex
	dark      bool
	renderers map[rendererKey]*glamour.TermRenderer
}

func NewRenderer(dark bool) *Renderer {
	return &Renderer{dark: dark, renderers: map[rendererKey]*glamour.TermRenderer{}}
}

// SetDark switches the style and reports whether it changed.
func (r *Renderer) SetDark(dark bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := r.dark != dark
	r.dark = dark
	return changed
}

// Render returns input rendered to at most width columns. It falls back to
// the raw input if glamour cannot render it.
func (r *Renderer) Render(input string, width int) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	tr := r.get(width)
	if tr == nil {
		return input
	}
	out, err := tr.Render(input)
	if err != nil {
		return input
	}
	out = strings.TrimRight(out, "\n")
	out = xansi.Hardwrap(out, width, true)
	return strings.TrimRight(out, "\n")
}

func (r *Renderer) get(width int) *glamour.TermRenderer {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := rendererKey{width: width, dark: r.dark}
	if tr, ok := r.renderers[key]; ok {
		return tr
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStyles(styleConfig(r.dark)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	r.renderers[key] = tr
	return tr
}

func styleConfig(dark bool) glamouransi.StyleConfig {
	base := styles.LightStyleConfig
	if dark {
		base = styles.DarkStyleConfig
	}
	// Views pad with lipgloss; drop glamour's own margins.
	base.Document.StylePrimitive.BlockPrefix = ""
	base.Document.StylePrimitive.BlockSuffix = ""
	zero := uint(0)
	base.Document.Margin = &zero
	return base
}

// Strip removes ANSI sequences, for plain output and tests.
func Strip(s string) string {
	return xansi.Strip(s)
}

// Section joins a heading and body into one markdown document.
func Section(title, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	if title == "" {
		return body
	}
	return "## " + title + "\n\n" + body
}
