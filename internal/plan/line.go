package plan

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Line is one content line of plan text with its nesting depth.
type Line struct {
	Number int
	Depth  int
	Label  string
	// Detail marks an attribute line that belongs to the preceding node
	// rather than starting a node of its own.
	Detail bool
}

// LineParser converts one raw line into a Line. It reports false for blank
// or non-content lines, which are dropped.
type LineParser interface {
	ParseLine(number int, raw string) (Line, bool)
}

// LineParserFunc adapts a function to LineParser.
type LineParserFunc func(number int, raw string) (Line, bool)

// ParseLine calls f.
func (f LineParserFunc) ParseLine(number int, raw string) (Line, bool) {
	return f(number, raw)
}

// Style names a prefix-to-depth convention.
type Style string

const (
	StyleAuto   Style = "auto"
	StyleTree   Style = "tree"
	StyleIndent Style = "indent"
	StyleArrow  Style = "arrow"
)

// DefaultIndentWidth is the indent unit used when none is configured.
const DefaultIndentWidth = 2

// ParseStyle converts a string to a Style. Empty defaults to StyleAuto.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleAuto, "":
		return StyleAuto, nil
	case StyleTree:
		return StyleTree, nil
	case StyleIndent:
		return StyleIndent, nil
	case StyleArrow:
		return StyleArrow, nil
	default:
		return "", fmt.Errorf("invalid depth style %q (expected auto|tree|indent|arrow)", s)
	}
}

// NewLineParser returns the parser for style. StyleAuto inspects text to pick
// a concrete style. indentWidth only applies to StyleIndent; values below 1
// use DefaultIndentWidth.
func NewLineParser(style Style, indentWidth int, text string) LineParser {
	if style == StyleAuto || style == "" {
		style = DetectStyle(text)
	}
	switch style {
	case StyleTree:
		return TreeParser{}
	case StyleArrow:
		return ArrowParser{}
	default:
		return IndentParser{Width: indentWidth}
	}
}

// IndentParser derives depth from leading whitespace. A tab counts as one
// full indent unit. Partial units are rounded down.
type IndentParser struct {
	Width int
}

// ParseLine implements LineParser.
func (p IndentParser) ParseLine(number int, raw string) (Line, bool) {
	width := p.Width
	if width < 1 {
		width = DefaultIndentWidth
	}
	label := strings.TrimSpace(raw)
	if label == "" {
		return Line{}, false
	}
	cols := 0
	for _, r := range raw {
		if r == ' ' {
			cols++
		} else if r == '\t' {
			cols += width
		} else {
			break
		}
	}
	return Line{Number: number, Depth: cols / width, Label: label}, true
}

var (
	treeConnectors = []string{"|--", "`--", "+--", "\\--", "├──", "└──"}
	// The sqlite3 shell and Render draw three column units. tree(1) draws
	// four, padding its bar with no-break spaces in UTF-8 locales.
	treeNarrowUnits = []string{"|  ", "│  ", "   "}
	treeWideUnits   = []string{"|   ", "│   ", "│\u00a0\u00a0 ", "    "}
)

// TreeParser reads the connector style printed by the sqlite3 shell and
// tree(1):
//
//	QUERY PLAN
//	|--SCAN t1
//	`--SEARCH t2 USING INDEX i2 (b=?)
//
//	plan
//	├── Hash Join
//	│   └── Seq Scan a
//	└── Sort
//
// Each continuation unit adds one level and the terminal connector adds one
// more. Units are three columns wide, or four when the connector is followed
// by a space as tree(1) prints it. A line with continuation units but no
// connector is a detail of the node above it.
//
// A line with no prefix is a root, so the sqlite3 shell's QUERY PLAN header
// becomes the root that its top level connectors hang from. ArrowParser
// drops the same header because PostgreSQL prints its own root node.
type TreeParser struct{}

// ParseLine implements LineParser.
func (TreeParser) ParseLine(number int, raw string) (Line, bool) {
	rest := strings.TrimRight(raw, " \t\r")
	if strings.TrimSpace(rest) == "" {
		return Line{}, false
	}
	if depth, label, ok := treePrefix(rest); ok {
		return Line{Number: number, Depth: depth + 1, Label: label}, true
	}
	depth, tail := consumeUnits(rest, treeNarrowUnits)
	if depth > 0 && startsWithBlank(tail) {
		if wide, wideTail := consumeUnits(rest, treeWideUnits); wide > 0 && !startsWithBlank(wideTail) {
			depth, tail = wide, wideTail
		}
	}
	label := strings.TrimSpace(tail)
	if depth == 0 {
		return Line{Number: number, Depth: 0, Label: label}, true
	}
	return Line{Number: number, Depth: depth, Label: label, Detail: true}, true
}

// treePrefix finds the connector that ends the prefix of s and returns the
// number of continuation units in front of it. Narrow units are tried first.
// A width that disagrees with the spacing after the connector is only used
// when the other width finds no connector at all.
func treePrefix(s string) (int, string, bool) {
	fallback, fallbackLabel, found := 0, "", false
	for _, units := range [][]string{treeNarrowUnits, treeWideUnits} {
		depth, rest := consumeUnits(s, units)
		c, ok := hasAnyPrefix(rest, treeConnectors)
		if !ok {
			continue
		}
		label := rest[len(c):]
		wide := len(units[0]) > len(treeNarrowUnits[0])
		if depth == 0 || startsWithBlank(label) == wide {
			return depth, strings.TrimSpace(label), true
		}
		if !found {
			fallback, fallbackLabel, found = depth, strings.TrimSpace(label), true
		}
	}
	return fallback, fallbackLabel, found
}

func consumeUnits(s string, units []string) (int, string) {
	depth := 0
	for {
		c, ok := hasAnyPrefix(s, units)
		if !ok {
			return depth, s
		}
		s = s[len(c):]
		depth++
	}
}

func startsWithBlank(s string) bool {
	return strings.HasPrefix(s, " ") || strings.HasPrefix(s, "\u00a0")
}

func hasAnyPrefix(s string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return p, true
		}
	}
	return "", false
}

var (
	arrowFooter    = regexp.MustCompile(`^\(\d+ rows?\)$`)
	arrowSeparator = regexp.MustCompile(`^[-+]+$`)
)

// ArrowParser reads PostgreSQL EXPLAIN text:
//
//	Hash Join  (cost=1.09..2.21 rows=4 width=8)
//	  Hash Cond: (a.id = b.id)
//	  ->  Seq Scan on a  (cost=0.00..1.04 rows=4 width=4)
//	  ->  Hash  (cost=1.04..1.04 rows=4 width=4)
//	        ->  Seq Scan on b  (cost=0.00..1.04 rows=4 width=4)
//
// psql's one column left padding is tolerated. PostgreSQL writes "->" plus
// two spaces and nests six columns per level. An arrow followed by a single
// space is MySQL EXPLAIN FORMAT=TREE, where every node carries an arrow and
// each level is four columns:
//
//	-> Nested loop inner join
//	    -> Table scan on t1
//	    -> Filter: (t2.a = t1.a)
//	        -> Table scan on t2
type ArrowParser struct{}

// ParseLine implements LineParser.
func (ArrowParser) ParseLine(number int, raw string) (Line, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "QUERY PLAN" || arrowFooter.MatchString(trimmed) || arrowSeparator.MatchString(trimmed) {
		return Line{}, false
	}
	indent := leadingColumns(raw)
	if strings.HasPrefix(trimmed, "->") {
		label := strings.TrimSpace(strings.TrimPrefix(trimmed, "->"))
		if !strings.HasPrefix(trimmed, "->  ") {
			return Line{Number: number, Depth: indent / 4, Label: label}, true
		}
		return Line{Number: number, Depth: (indent + 4) / 6, Label: label}, true
	}
	if indent <= 1 {
		return Line{Number: number, Depth: 0, Label: trimmed}, true
	}
	return Line{Number: number, Depth: (indent + 4) / 6, Label: trimmed, Detail: true}, true
}

func leadingColumns(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r != ' ' && r != '\t' {
			break
		}
		n++
		s = s[size:]
	}
	return n
}

// DetectStyle guesses the depth convention of plan text.
func DetectStyle(text string) Style {
	arrow := false
	for _, raw := range strings.Split(text, "\n") {
		if _, _, ok := treePrefix(raw); ok {
			return StyleTree
		}
		if strings.HasPrefix(strings.TrimSpace(raw), "->") {
			arrow = true
		}
	}
	if arrow {
		return StyleArrow
	}
	return StyleIndent
}
