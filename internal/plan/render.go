package plan

import (
	"bufio"
	"io"

	"github.com/fatih/color"
)

// RenderOptions controls Render.
type RenderOptions struct {
	// Unicode draws box-drawing connectors instead of the sqlite3 shell's
	// ASCII ones.
	Unicode bool
	// Color highlights connectors, roots and details.
	Color bool
	// Details prints attribute lines under their node.
	Details bool
}

type glyphs struct {
	branch, last, pipe, space string
}

var (
	asciiGlyphs   = glyphs{branch: "|--", last: "`--", pipe: "|  ", space: "   "}
	unicodeGlyphs = glyphs{branch: "├──", last: "└──", pipe: "│  ", space: "   "}
)

// Render writes the forest in tree connector form. The output parses back
// into an identical forest with TreeParser.
func Render(w io.Writer, roots []*Node, opts RenderOptions) error {
	g := asciiGlyphs
	if opts.Unicode {
		g = unicodeGlyphs
	}
	r := &renderer{
		w:      bufio.NewWriter(w),
		g:      g,
		opts:   opts,
		marker: color.New(color.FgHiBlack),
		root:   color.New(color.Bold),
		detail: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{r.marker, r.root, r.detail} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	for _, root := range roots {
		r.line(r.root.Sprint(root.label))
		r.details(root, "")
		r.children(root, "")
	}
	if r.err != nil {
		return r.err
	}
	return r.w.Flush()
}

type renderer struct {
	w      *bufio.Writer
	g      glyphs
	opts   RenderOptions
	marker *color.Color
	root   *color.Color
	detail *color.Color
	err    error
}

func (r *renderer) line(s string) {
	if r.err != nil {
		return
	}
	if _, err := r.w.WriteString(s + "\n"); err != nil {
		r.err = err
	}
}

func (r *renderer) details(n *Node, prefix string) {
	if !r.opts.Details || len(n.details) == 0 {
		return
	}
	lead := r.g.space
	if len(n.children) > 0 {
		lead = r.g.pipe
	}
	for _, d := range n.details {
		r.line(r.marker.Sprint(prefix+lead) + r.detail.Sprint(d))
	}
}

func (r *renderer) children(n *Node, prefix string) {
	for i, c := range n.children {
		connector, next := r.g.branch, r.g.pipe
		if i == len(n.children)-1 {
			connector, next = r.g.last, r.g.space
		}
		r.line(r.marker.Sprint(prefix+connector) + c.label)
		r.details(c, prefix+next)
		r.children(c, prefix+next)
	}
}
