package views

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/murmur/internal/chat"
	"github.com/matheus3301/murmur/internal/demo"
	"github.com/matheus3301/murmur/internal/tui/ui"
	"github.com/rivo/tview"
)

const previewLen = 48

// ConversationList is the contact table: one row per conversation with its
// unread badge and last message.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	selfID  string
	convs   []chat.Conversation
	visible []chat.Conversation
	active  string
	typing  map[string]bool
	filter  string
}

// NewConversationList creates the conversation table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{Table: table, theme: theme, typing: map[string]bool{}}
	cl.render()
	return cl
}

// Update replaces the rows. The selection stays on the same conversation.
func (cl *ConversationList) Update(selfID string, convs []chat.Conversation, active string, typing map[string]bool) {
	selected := cl.SelectedID()
	cl.selfID = selfID
	cl.convs = convs
	cl.active = active
	cl.typing = typing
	cl.render()
	if selected != "" {
		cl.SelectID(selected)
	}
}

// SetFilter narrows the rows to names, emails or previews containing filter.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = strings.TrimSpace(filter)
	cl.render()
}

// Filter returns the active filter.
func (cl *ConversationList) Filter() string { return cl.filter }

// SelectedID returns the conversation under the cursor, or "".
func (cl *ConversationList) SelectedID() string {
	row, _ := cl.GetSelection()
	return cl.ByIndex(row)
}

// ByIndex returns the id of the nth visible row (1-based), or "".
func (cl *ConversationList) ByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].ID
}

// SelectID moves the cursor to conversation id if it is visible.
func (cl *ConversationList) SelectID(id string) bool {
	for i, c := range cl.visible {
		if c.ID == id {
			cl.Table.Select(i+1, 0)
			return true
		}
	}
	return false
}

// Find returns the first conversation whose contact name starts with, or
// else contains, query.
func (cl *ConversationList) Find(query string) (chat.Conversation, bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return chat.Conversation{}, false
	}
	for _, c := range cl.convs {
		if strings.HasPrefix(strings.ToLower(c.User.Name), query) {
			return c, true
		}
	}
	for _, c := range cl.convs {
		if containsFold(c.User.Name, query) {
			return c, true
		}
	}
	return chat.Conversation{}, false
}

func (cl *ConversationList) matches(c chat.Conversation) bool {
	if cl.filter == "" {
		return true
	}
	return containsFold(c.User.Name, cl.filter) ||
		containsFold(c.User.Email, cl.filter) ||
		containsFold(c.LastMessage.Text, cl.filter)
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" ", 0},
		{"NAME", 1},
		{"LAST MESSAGE", 3},
		{"TIME", 0},
		{"UNREAD", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cl.visible = cl.visible[:0]
	for _, c := range cl.convs {
		if !cl.matches(c) {
			continue
		}
		cl.visible = append(cl.visible, c)
		row := len(cl.visible)

		marker := " "
		if c.ID == cl.active {
			marker = "▸"
		}
		nameColor := cl.theme.FgColor
		if c.Unread > 0 {
			nameColor = cl.theme.UnreadColor
		}
		cl.SetCell(row, 0, tview.NewTableCell(marker).SetTextColor(cl.theme.TitleColor))
		cl.SetCell(row, 1, tview.NewTableCell(tview.Escape(singleLine(c.User.Name))).
			SetExpansion(1).SetTextColor(nameColor))
		cl.SetCell(row, 2, cl.previewCell(c).SetExpansion(3))
		cl.SetCell(row, 3, tview.NewTableCell(demo.FormatTime(c.LastMessage.Timestamp)).
			SetTextColor(cl.theme.MutedColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 4, tview.NewTableCell(unreadBadge(c.Unread)).
			SetTextColor(cl.theme.UnreadColor).SetAlign(tview.AlignRight))
	}

	title := fmt.Sprintf(" Conversations (%d) ", len(cl.convs))
	if cl.filter != "" {
		title = fmt.Sprintf(" Conversations (%d/%d) /%s ", len(cl.visible), len(cl.convs), tview.Escape(cl.filter))
	}
	cl.SetTitle(title)
}

func (cl *ConversationList) previewCell(c chat.Conversation) *tview.TableCell {
	if cl.typing[c.ID] {
		return tview.NewTableCell("typing...").SetTextColor(cl.theme.TypingColor).SetAttributes(tcell.AttrItalic)
	}
	if c.LastMessage.IsZero() {
		return tview.NewTableCell("no messages yet").SetTextColor(cl.theme.MutedColor)
	}
	text := preview(c.LastMessage.Text, previewLen)
	if c.LastMessage.SenderID == cl.selfID {
		text = "You: " + text
	}
	return tview.NewTableCell(tview.Escape(text)).SetTextColor(cl.theme.FgColor)
}

// preview flattens text to one line of at most n runes.
func preview(text string, n int) string {
	text = singleLine(text)
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}

func unreadBadge(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
