package renderer

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

// Style names accepted by Print, besides the glamour standard styles.
const (
	StylePlain = "plain"
	StyleAuto  = "auto"
)

// Print writes markdown to w. StylePlain writes it untouched, StyleAuto
// picks a glamour style from the terminal, anything else names a glamour
// standard style such as "dark" or "notty".
func Print(w io.Writer, markdown, style string) error {
	if style == StylePlain {
		_, err := io.WriteString(w, markdown)
		return err
	}

	opt := glamour.WithStandardStyle(style)
	if style == StyleAuto || style == "" {
		opt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
