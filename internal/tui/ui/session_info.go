package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// SessionData is what the header shows about the signed-in session.
type SessionData struct {
	Profile       string
	Name          string
	Email         string
	Replies       string
	Conversations int
	Unread        int
}

// SessionInfo is the header panel with session details.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates the session panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)
	return &SessionInfo{TextView: tv, theme: theme}
}

// Update renders data.
func (si *SessionInfo) Update(data SessionData) {
	si.Clear()
	fg, val := Tag(si.theme.FgColor), Tag(si.theme.CounterColor)
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(si, "[%s::b]%-8s[-:-:-] [%s]%s[-]\n", fg, label, val, tview.Escape(value))
	}
	row("Profile:", data.Profile)
	row("User:", data.Name)
	row("Email:", data.Email)
	row("Replies:", data.Replies)
	row("Chats:", fmt.Sprintf("%d (%d unread)", data.Conversations, data.Unread))
}
