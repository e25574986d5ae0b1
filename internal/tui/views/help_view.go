package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/murmur/internal/tui/ui"
	"github.com/rivo/tview"
)

type helpSection struct {
	title string
	keys  [][2]string
}

var helpSections = []helpSection{
	{"Global", [][2]string{
		{":", "Command mode"},
		{"?", "This help"},
		{"Esc", "Back"},
		{"q", "Quit"},
		{"Ctrl-C", "Quit immediately"},
	}},
	{"Conversations", [][2]string{
		{"Enter", "Open conversation"},
		{"/", "Filter by name, email or message"},
		{"1-9", "Open the Nth conversation"},
		{"n", "New chat (clears the open conversation)"},
		{"j/k", "Move down / up"},
	}},
	{"Chat", [][2]string{
		{"i", "Focus the composer"},
		{"Enter", "Send (in composer, not while the contact is typing)"},
		{"Esc", "Leave the composer"},
		{"d", "Contact details"},
		{"n", "New chat"},
	}},
	{"Commands", [][2]string{
		{":open <name>", "Open a conversation by contact name"},
		{":new", "New chat"},
		{":info", "Details of the open conversation"},
		{":logout", "Sign out"},
		{":help", "This help"},
		{":quit", "Quit"},
	}},
}

// HelpView is the key reference page.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates the help page.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)
	_, _ = fmt.Fprint(tv, renderHelp(ui.Tag(theme.MenuKeyColor)))
	return &HelpView{TextView: tv}
}

func renderHelp(keyColor string) string {
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, k := range s.keys {
			fmt.Fprintf(&b, "  [%s]%-14s[-] %s\n", keyColor, tview.Escape(k[0]), k[1])
		}
	}
	return b.String()
}
