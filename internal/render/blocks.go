// Package render derives typed content blocks from a post's raw body text.
// Blocks are never persisted; they are recomputed on every read so the
// rendering rules can evolve without rewriting stored posts. Normalization
// is pure and deterministic: the same text always yields the same blocks.
package render

import "strings"

// BlockType identifies a renderable unit.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockList      BlockType = "list"
	BlockParagraph BlockType = "paragraph"
)

// Block is one typed unit of renderable text.
type Block struct {
	Type  BlockType `json:"type"`
	Text  string    `json:"text,omitempty"`
	Items []string  `json:"items,omitempty"`
}

// Blocks converts raw body text into an ordered block sequence.
func Blocks(content string) []Block {
	lines := prepare(content)

	var blocks []Block
	var para []string
	var items []string

	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, Block{Type: BlockParagraph, Text: strings.Join(para, " ")})
			para = nil
		}
	}
	flushList := func() {
		if len(items) > 0 {
			blocks = append(blocks, Block{Type: BlockList, Items: items})
			items = nil
		}
	}

	for _, line := range lines {
		t := strings.TrimSpace(line)

		switch {
		case t == "":
			flushPara()
			flushList()

		case isHeading(t):
			flushPara()
			flushList()
			blocks = append(blocks, Block{Type: BlockHeading, Text: headingText(t)})

		case isListItem(t):
			flushPara()
			items = append(items, listItemText(t))

		default:
			flushList()
			para = append(para, t)
		}
	}

	flushPara()
	flushList()
	return blocks
}

// prepare normalizes line endings, strips emphasis markup, rewrites inline
// lists onto separate lines and collapses runs of three or more blank lines
// to a single blank line.
func prepare(content string) []string {
	s := strings.ReplaceAll(content, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "**", "")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		lines = append(lines, rewriteInlineList(line)...)
	}

	return collapseBlanks(lines)
}

// rewriteInlineList handles the inline list heuristic: a line carrying
// multiple *-delimited fragments becomes one "- " line per fragment. When
// the line does not itself start with the marker, its first fragment is
// kept as lead-in text. This rule takes precedence over the paragraph
// rule; lines with fewer than two fragments only lose stray "*" emphasis.
func rewriteInlineList(line string) []string {
	t := strings.TrimSpace(line)

	// Already a normal list item line; leave it for the block scan.
	if strings.HasPrefix(t, "- ") || strings.HasPrefix(t, "* ") && strings.Count(t, "*") == 1 {
		return []string{line}
	}

	if strings.Count(t, "*") >= 2 {
		var frags []string
		for _, f := range strings.Split(t, "*") {
			if f = strings.TrimSpace(f); f != "" {
				frags = append(frags, f)
			}
		}
		if len(frags) >= 2 {
			var out []string
			if !strings.HasPrefix(t, "*") {
				out = append(out, frags[0])
				frags = frags[1:]
			}
			for _, f := range frags {
				out = append(out, "- "+f)
			}
			return out
		}
	}

	// Leftover single emphasis marker
	if strings.Contains(t, "*") && !strings.HasPrefix(t, "* ") {
		return []string{strings.ReplaceAll(line, "*", "")}
	}
	return []string{line}
}

// collapseBlanks reduces runs of 3+ blank lines to exactly one blank line.
func collapseBlanks(lines []string) []string {
	var out []string
	blanks := 0
	flush := func() {
		if blanks >= 3 {
			out = append(out, "")
		} else {
			for i := 0; i < blanks; i++ {
				out = append(out, "")
			}
		}
		blanks = 0
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blanks++
			continue
		}
		flush()
		out = append(out, line)
	}
	flush()
	return out
}

func isHeading(t string) bool {
	trimmed := strings.TrimLeft(t, "#")
	return len(trimmed) < len(t) && strings.HasPrefix(trimmed, " ")
}

func headingText(t string) string {
	return strings.TrimSpace(strings.TrimLeft(t, "#"))
}

func isListItem(t string) bool {
	return strings.HasPrefix(t, "- ") || strings.HasPrefix(t, "* ")
}

func listItemText(t string) string {
	return strings.TrimSpace(t[2:])
}
