package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo is the header wordmark.
type Logo struct {
	*tview.TextView
}

// NewLogo creates the logo panel.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignRight)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 0, 1)

	tc, fc := Tag(theme.TitleColor), Tag(theme.MutedColor)
	_, _ = fmt.Fprintf(tv,
		"[%s::b]┌┬┐┬ ┬┬─┐┌┬┐┬ ┬┬─┐[-:-:-]\n"+
			"[%s::b]││││ │├┬┘││││ │├┬┘[-:-:-]\n"+
			"[%s::b]┴ ┴└─┘┴└─┴ ┴└─┘┴└─[-:-:-]\n"+
			"[%s]terminal chat[-:-:-]",
		tc, tc, tc, fc)
	return &Logo{TextView: tv}
}
