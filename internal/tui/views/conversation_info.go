package views

import (
	"fmt"

	"github.com/matheus3301/murmur/internal/chat"
	"github.com/matheus3301/murmur/internal/demo"
	"github.com/matheus3301/murmur/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo shows the contact card of a conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates the details page.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)
	return &ConversationInfo{TextView: tv, theme: theme}
}

// Update renders conv.
func (ci *ConversationInfo) Update(conv chat.Conversation) {
	ci.Clear()
	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(singleLine(conv.User.Name))))

	last, when := "-", "-"
	if !conv.LastMessage.IsZero() {
		last = preview(conv.LastMessage.Text, 60)
		when = demo.FormatTime(conv.LastMessage.Timestamp)
	}
	fg, val := ui.Tag(ci.theme.FgColor), ui.Tag(ci.theme.CounterColor)
	rows := []struct{ label, value string }{
		{"Name", singleLine(conv.User.Name)},
		{"Email", conv.User.Email},
		{"Contact ID", conv.User.ID},
		{"Avatar", conv.User.Avatar},
		{"Unread", fmt.Sprintf("%d", conv.Unread)},
		{"Last active", when},
		{"Last message", last},
	}
	_, _ = fmt.Fprintln(ci)
	for _, r := range rows {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-13s[-:-:-] [%s]%s[-]\n", fg, r.label+":", val, tview.Escape(r.value))
	}
}
