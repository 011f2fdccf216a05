package dialogue

import (
	"fmt"
	"strings"
)

// Render serializes turns back into the triple-hash script form. The
// emotion line is always emitted, so Parse(Render(turns)) reproduces the
// same list.
func Render(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### %s speaker ###\n", t.Speaker)
		fmt.Fprintf(&b, "### %s ###\n", t.Emotion)
		fmt.Fprintf(&b, "### %s ###\n", t.Text)
	}
	return b.String()
}

// Summary formats a turn for human inspection, one line per turn.
func Summary(t Turn) string {
	return fmt.Sprintf("[%03d] %-6s %-9s %s", t.Number(), t.Speaker, t.Emotion, t.Text)
}
