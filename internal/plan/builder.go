package plan

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedDepth is matched by every *ParseError.
var ErrMalformedDepth = errors.New("malformed plan depth")

// ParseError reports a line whose depth cannot be reconciled with the
// ancestor chain built so far.
type ParseError struct {
	Line      int    `json:"line" yaml:"line"`
	Text      string `json:"text" yaml:"text"`
	Depth     int    `json:"depth" yaml:"depth"`
	PrevDepth int    `json:"prev_depth" yaml:"prev_depth"`
	Reason    string `json:"reason" yaml:"reason"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("plan line %d: %s (depth %d after depth %d): %q", e.Line, e.Reason, e.Depth, e.PrevDepth, e.Text)
}

// Is makes errors.Is(err, ErrMalformedDepth) hold.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedDepth
}

// Failure reasons carried by ParseError.
const (
	ReasonRootDepth       = "first line must be at depth 0"
	ReasonForwardJump     = "depth increases by more than one level"
	ReasonMissingAncestor = "no enclosing node at that depth"
	ReasonOrphanDetail    = "detail line before any plan node"
)

// Builder assembles a forest from depth-tagged lines in a single forward
// pass. A Builder is not safe for concurrent use; parse each plan with its
// own Builder.
type Builder struct {
	roots []*Node
	last  *Node
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add attaches the next line. Detail lines are appended to the most recent
// node.
func (b *Builder) Add(l Line) error {
	if l.Detail {
		if b.last == nil {
			return &ParseError{Line: l.Number, Text: l.Label, Depth: l.Depth, PrevDepth: -1, Reason: ReasonOrphanDetail}
		}
		b.last.details = append(b.last.details, l.Label)
		return nil
	}

	parent, err := b.resolveParent(l)
	if err != nil {
		return err
	}

	n := &Node{depth: l.Depth, label: l.Label, line: l.Number, parent: parent}
	if parent == nil {
		b.roots = append(b.roots, n)
	} else {
		parent.children = append(parent.children, n)
	}
	b.last = n
	return nil
}

func (b *Builder) resolveParent(l Line) (*Node, error) {
	if b.last == nil {
		if l.Depth != 0 {
			return nil, &ParseError{Line: l.Number, Text: l.Label, Depth: l.Depth, PrevDepth: -1, Reason: ReasonRootDepth}
		}
		return nil, nil
	}

	prev := b.last.depth
	switch {
	case l.Depth == prev+1:
		return b.last, nil
	case l.Depth == prev:
		return b.last.parent, nil
	case l.Depth < prev:
		for anc := b.last.parent; anc != nil; anc = anc.parent {
			if anc.depth == l.Depth {
				return anc.parent, nil
			}
		}
		return nil, &ParseError{Line: l.Number, Text: l.Label, Depth: l.Depth, PrevDepth: prev, Reason: ReasonMissingAncestor}
	default:
		return nil, &ParseError{Line: l.Number, Text: l.Label, Depth: l.Depth, PrevDepth: prev, Reason: ReasonForwardJump}
	}
}

// Roots returns the roots built so far, in first-seen order. After a failed
// Add it holds the portion of the forest built before the error.
func (b *Builder) Roots() []*Node {
	return b.roots
}

// BuildLines builds a forest from already parsed lines.
func BuildLines(lines []Line) ([]*Node, error) {
	b := NewBuilder()
	for _, l := range lines {
		if err := b.Add(l); err != nil {
			return nil, err
		}
	}
	return b.Roots(), nil
}

// BuildForest parses raw plan text into a forest. A nil parser selects one
// with DetectStyle. Input without content lines yields an empty forest.
func BuildForest(raw string, parser LineParser) ([]*Node, error) {
	b, err := Scan(raw, parser)
	if err != nil {
		return nil, err
	}
	return b.Roots(), nil
}

// Scan feeds raw plan text through parser into a new Builder. On a
// structural error the returned Builder holds the partial forest.
func Scan(raw string, parser LineParser) (*Builder, error) {
	if parser == nil {
		parser = NewLineParser(StyleAuto, DefaultIndentWidth, raw)
	}
	b := NewBuilder()
	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	number := 0
	for sc.Scan() {
		number++
		l, ok := parser.ParseLine(number, sc.Text())
		if !ok {
			continue
		}
		if err := b.Add(l); err != nil {
			return b, err
		}
	}
	if err := sc.Err(); err != nil {
		return b, fmt.Errorf("reading plan text: %w", err)
	}
	return b, nil
}
