package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/murmur/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar is the bottom line: profile, signed-in user, typing and clock.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	profile string
	user    string
	typing  string
	now     func() time.Time
}

// NewStatusBar creates the status line.
func NewStatusBar(theme *ui.Theme, profile string) *StatusBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)
	sb := &StatusBar{TextView: tv, theme: theme, profile: profile, now: time.Now}
	sb.render()
	return sb
}

// SetUser shows who is signed in; "" means signed out.
func (sb *StatusBar) SetUser(name string) {
	sb.user = name
	sb.render()
}

// SetTyping shows "<name> is typing"; "" hides it.
func (sb *StatusBar) SetTyping(name string) {
	sb.typing = name
	sb.render()
}

// Tick redraws the clock.
func (sb *StatusBar) Tick() { sb.render() }

func (sb *StatusBar) render() {
	sb.Clear()
	user := sb.user
	if user == "" {
		user = "signed out"
	}
	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s", tview.Escape(sb.profile), tview.Escape(user))
	if sb.typing != "" {
		line += fmt.Sprintf(" | [%s::i]%s is typing...[-:-:-]", ui.Tag(sb.theme.TypingColor), tview.Escape(sb.typing))
	}
	line += " | " + sb.now().Format("15:04")
	_, _ = fmt.Fprint(sb, line)
}
