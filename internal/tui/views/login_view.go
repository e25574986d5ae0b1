package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/murmur/internal/tui/ui"
	"github.com/rivo/tview"
)

const (
	fieldName  = "Name"
	fieldEmail = "Email"
)

// LoginView is the sign-in form shown when no identity is stored.
type LoginView struct {
	*tview.Flex
	theme    *ui.Theme
	form     *tview.Form
	status   *tview.TextView
	onSubmit func(name, email string)
	onQuit   func()
}

// NewLoginView creates the sign-in page.
func NewLoginView(theme *ui.Theme) *LoginView {
	form := tview.NewForm().
		AddInputField(fieldName, "", 32, nil, nil).
		AddInputField(fieldEmail, "", 32, nil, nil)
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetTitle(" Sign in ")
	form.SetTitleColor(theme.TitleColor)
	form.SetFieldBackgroundColor(theme.BgColor)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.BorderColor)
	form.SetButtonTextColor(theme.TableCursorFg)

	status := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	status.SetBackgroundColor(theme.BgColor)

	column := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(form, 9, 0, true).
		AddItem(status, 2, 0, false).
		AddItem(nil, 0, 1, false)
	flex := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(column, 50, 0, true).
		AddItem(nil, 0, 1, false)

	lv := &LoginView{Flex: flex, theme: theme, form: form, status: status}
	form.AddButton("Sign in", lv.submit)
	form.AddButton("Quit", func() {
		if lv.onQuit != nil {
			lv.onQuit()
		}
	})
	lv.ShowMessage("Enter a display name and an email to start chatting.")
	return lv
}

// SetOnSubmit sets the sign-in callback.
func (lv *LoginView) SetOnSubmit(fn func(name, email string)) { lv.onSubmit = fn }

// SetOnQuit sets the Quit button callback.
func (lv *LoginView) SetOnQuit(fn func()) { lv.onQuit = fn }

// Form returns the form, for focus handling.
func (lv *LoginView) Form() *tview.Form { return lv.form }

// Values returns the trimmed field contents.
func (lv *LoginView) Values() (name, email string) {
	return lv.text(fieldName), lv.text(fieldEmail)
}

// Reset clears the fields and focuses the first one.
func (lv *LoginView) Reset() {
	lv.setText(fieldName, "")
	lv.setText(fieldEmail, "")
	lv.form.SetFocus(0)
	lv.ShowMessage("Enter a display name and an email to start chatting.")
}

// ShowMessage shows a hint under the form.
func (lv *LoginView) ShowMessage(msg string) {
	lv.status.Clear()
	_, _ = fmt.Fprintf(lv.status, "[%s]%s[-]", ui.Tag(lv.theme.MutedColor), tview.Escape(msg))
}

// ShowError shows a validation or storage error under the form.
func (lv *LoginView) ShowError(err error) {
	lv.status.Clear()
	_, _ = fmt.Fprintf(lv.status, "[%s]%s[-]", ui.Tag(lv.theme.FlashErrColor), tview.Escape(err.Error()))
}

func (lv *LoginView) submit() {
	name, email := lv.Values()
	if email == "" {
		lv.ShowError(fmt.Errorf("email is required"))
		lv.form.SetFocus(1)
		return
	}
	if lv.onSubmit != nil {
		lv.onSubmit(name, email)
	}
}

func (lv *LoginView) text(label string) string {
	if field, ok := lv.form.GetFormItemByLabel(label).(*tview.InputField); ok {
		return strings.TrimSpace(field.GetText())
	}
	return ""
}

func (lv *LoginView) setText(label, value string) {
	if field, ok := lv.form.GetFormItemByLabel(label).(*tview.InputField); ok {
		field.SetText(value)
	}
}
