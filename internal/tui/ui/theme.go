// Package ui holds the shared widgets of the terminal client: header panels,
// page stack, prompt and notification bar.
package ui

import "github.com/gdamore/tcell/v2"

// Theme holds the colors of the terminal client.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	SelfColor         tcell.Color
	PeerColor         tcell.Color
	MutedColor        tcell.Color
	UnreadColor       tcell.Color
	TypingColor       tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
}

// DefaultTheme returns the dark purple theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorLightGray,
		BorderColor:       tcell.ColorMediumPurple,
		BorderFocusColor:  tcell.ColorPlum,
		TableHeaderFg:     tcell.ColorWhite,
		TableHeaderBg:     tcell.ColorBlack,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorMediumPurple,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorPlum,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorSlateBlue,
		MenuKeyColor:      tcell.ColorMediumPurple,
		TitleColor:        tcell.ColorPlum,
		CounterColor:      tcell.ColorPapayaWhip,
		SelfColor:         tcell.ColorMediumPurple,
		PeerColor:         tcell.ColorMediumAquamarine,
		MutedColor:        tcell.ColorGray,
		UnreadColor:       tcell.ColorGold,
		TypingColor:       tcell.ColorMediumAquamarine,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorMediumPurple,
	}
}

// Tag returns c as a tview color tag value, e.g. "#9370db".
func Tag(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return Hex(c)
}

// Hex formats c as a #rrggbb string.
func Hex(c tcell.Color) string {
	return "#" + hex6(c.Hex())
}

func hex6(v int32) string {
	const digits = "0123456789abcdef"
	b := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		b[i] = digits[v&0xf]
		v >>= 4
	}
	return string(b)
}
