package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/murmur/internal/chat"
	"github.com/matheus3301/murmur/internal/demo"
	"github.com/matheus3301/murmur/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread shows the active conversation above a composer line.
type MessageThread struct {
	*tview.Flex
	theme     *ui.Theme
	messages  *tview.TextView
	indicator *tview.TextView
	composer  *tview.InputField

	self   chat.User
	peer   chat.User
	typing bool

	onSend    func(text string) bool
	onBlocked func()
}

// NewMessageThread creates the chat view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	indicator := tview.NewTextView().SetDynamicColors(true)
	indicator.SetBackgroundColor(theme.BgColor)
	indicator.SetTextColor(theme.TypingColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("Type a message...")
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus, Esc to leave) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(indicator, 1, 0, false).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:      flex,
		theme:     theme,
		messages:  messages,
		indicator: indicator,
		composer:  composer,
	}
	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			mt.submit(composer.GetText())
		}
	})
	mt.render(nil)
	return mt
}

// SetOnSend sets the send callback. The composer is cleared only when it
// returns true.
func (mt *MessageThread) SetOnSend(fn func(text string) bool) { mt.onSend = fn }

// SetOnBlocked sets the callback for an Enter while the contact is typing.
func (mt *MessageThread) SetOnBlocked(fn func()) { mt.onBlocked = fn }

// Peer returns the contact of the shown conversation.
func (mt *MessageThread) Peer() chat.User { return mt.peer }

// Update renders msgs exchanged between self and peer. A zero peer shows the
// empty new-chat screen.
func (mt *MessageThread) Update(self, peer chat.User, msgs []chat.Message) {
	mt.self = self
	mt.peer = peer
	mt.render(msgs)
	mt.renderIndicator()
}

// SetTyping toggles the typing indicator. The composer is disabled while the
// contact is typing.
func (mt *MessageThread) SetTyping(typing bool) {
	mt.typing = typing
	mt.composer.SetDisabled(typing)
	mt.renderIndicator()
}

// Typing reports whether the typing indicator is on.
func (mt *MessageThread) Typing() bool { return mt.typing }

// Messages returns the message pane, for focus handling.
func (mt *MessageThread) Messages() *tview.TextView { return mt.messages }

// Composer returns the input line, for focus handling.
func (mt *MessageThread) Composer() *tview.InputField { return mt.composer }

func (mt *MessageThread) submit(text string) {
	if mt.typing {
		if mt.onBlocked != nil {
			mt.onBlocked()
		}
		return
	}
	if mt.onSend != nil && mt.onSend(text) {
		mt.composer.SetText("")
	}
}

func (mt *MessageThread) render(msgs []chat.Message) {
	mt.messages.Clear()
	if mt.peer.ID == "" {
		mt.messages.SetTitle(" New chat ")
		_, _ = fmt.Fprintf(mt.messages, "\n  [%s]Pick a contact from the list to start chatting.[-]",
			ui.Tag(mt.theme.MutedColor))
		return
	}

	name := tview.Escape(singleLine(mt.peer.Name))
	mt.messages.SetTitle(fmt.Sprintf(" %s ", name))
	if len(msgs) == 0 {
		_, _ = fmt.Fprintf(mt.messages, "\n  [%s]No messages yet. Say hi to %s![-]",
			ui.Tag(mt.theme.MutedColor), name)
		return
	}

	for _, m := range msgs {
		_, _ = fmt.Fprint(mt.messages, mt.formatMessage(m))
	}
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) formatMessage(m chat.Message) string {
	sender, color := mt.peer.Name, mt.theme.PeerColor
	mine := m.SenderID == mt.self.ID
	if mine {
		sender, color = "You", mt.theme.SelfColor
	}
	meta := demo.FormatTime(m.Timestamp)
	if mine {
		meta += " " + statusMark(m.Status)
	}
	return fmt.Sprintf("[%s::b]%s[-:-:-] [%s]%s[-]\n%s\n\n",
		ui.Tag(color), tview.Escape(singleLine(sender)),
		ui.Tag(mt.theme.MutedColor), meta,
		tview.Escape(sanitizeForTerminal(m.Text)))
}

func (mt *MessageThread) renderIndicator() {
	mt.indicator.Clear()
	if mt.typing && mt.peer.ID != "" {
		_, _ = fmt.Fprintf(mt.indicator, "  [::i]%s is typing...[::-]", tview.Escape(singleLine(mt.peer.Name)))
	}
}

func statusMark(s chat.Status) string {
	switch s {
	case chat.StatusSent:
		return "✓"
	case chat.StatusDelivered:
		return "✓✓"
	case chat.StatusRead:
		return "✓✓ read"
	default:
		return ""
	}
}
