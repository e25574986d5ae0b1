package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// MenuHint is one key shortcut shown in the header.
type MenuHint struct {
	Key         string
	Description string
}

// Menu lists the shortcuts of the current page in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
	rows  int
}

// NewMenu creates a menu with rows lines per column.
func NewMenu(theme *Theme, rows int) *Menu {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme, rows: max(rows, 1)}
}

// Update renders hints column by column.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	kc := Tag(m.theme.MenuKeyColor)
	for row := range m.rows {
		for i := row; i < len(hints); i += m.rows {
			h := hints[i]
			key := fmt.Sprintf("<%s>", h.Key)
			_, _ = fmt.Fprintf(m, "[%s::b]%-8s[-:-:-]%-14s", kc, tview.Escape(key), h.Description)
		}
		if row < m.rows-1 {
			_, _ = fmt.Fprintln(m)
		}
	}
}
