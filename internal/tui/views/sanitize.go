package views

import (
	"strings"

	"github.com/rivo/tview"
)

// clean strips codepoints tcell renders badly (emoji modifiers, joiners,
// variation selectors and control characters) and escapes tview color tags.
func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		case r >= 0x1F3FB && r <= 0x1F3FF, // skin tones
			r == 0x200D,                // zero width joiner
			r >= 0xFE00 && r <= 0xFE0F, // variation selectors
			r >= 0xE0100 && r <= 0xE01EF:
			return -1
		}
		return r
	}, s)
	return tview.Escape(s)
}

// cleanBlock is clean for multi-line message bodies: newlines survive.
func cleanBlock(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = clean(l)
	}
	return strings.Join(lines, "\n")
}
