package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode selects what a submitted prompt line means.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

const historyLimit = 50

// Prompt is the ':' command and '/' filter input. Up and Down walk the
// command history.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	history  []string
	cursor   int
	silent   bool
	onSubmit func(mode PromptMode, text string)
	onChange func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates a prompt bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	p := &Prompt{InputField: input}

	input.SetChangedFunc(func(text string) {
		if p.onChange != nil && !p.silent {
			p.onChange(p.mode, text)
		}
	})
	input.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if p.mode != PromptCommand {
			return ev
		}
		switch ev.Key() {
		case tcell.KeyUp:
			p.recall(-1)
			return nil
		case tcell.KeyDown:
			p.recall(1)
			return nil
		}
		return ev
	})
	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			p.submit(p.GetText())
		case tcell.KeyEscape:
			p.reset()
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})
	return p
}

// SetOnSubmit sets the Enter callback.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) { p.onSubmit = fn }

// SetOnChange sets the per-keystroke callback, used for live filtering.
func (p *Prompt) SetOnChange(fn func(mode PromptMode, text string)) { p.onChange = fn }

// SetOnCancel sets the Esc callback.
func (p *Prompt) SetOnCancel(fn func()) { p.onCancel = fn }

// Activate clears the prompt and switches it to mode.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.cursor = len(p.history)
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter ")
	}
	p.reset()
}

// Mode returns the active mode.
func (p *Prompt) Mode() PromptMode { return p.mode }

func (p *Prompt) submit(text string) {
	mode := p.mode
	if mode == PromptCommand && text != "" {
		p.history = append(p.history, text)
		if len(p.history) > historyLimit {
			p.history = p.history[len(p.history)-historyLimit:]
		}
	}
	p.reset()
	if p.onSubmit != nil {
		p.onSubmit(mode, text)
	}
}

// reset clears the line without firing the change callback.
func (p *Prompt) reset() {
	p.silent = true
	p.SetText("")
	p.silent = false
}

func (p *Prompt) recall(step int) {
	if len(p.history) == 0 {
		return
	}
	p.cursor = min(max(p.cursor+step, 0), len(p.history))
	if p.cursor == len(p.history) {
		p.SetText("")
		return
	}
	p.SetText(p.history[p.cursor])
}
