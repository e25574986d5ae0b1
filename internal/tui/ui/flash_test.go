package ui

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFlashExpires(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	if f.Current() != nil {
		t.Fatal("fresh model should be empty")
	}

	f.Info("saved")
	m := f.Current()
	if m == nil || m.Text != "saved" || m.Level != FlashInfo {
		t.Fatalf("Current() = %+v", m)
	}

	now = now.Add(infoTTL)
	if f.Current() != nil {
		t.Error("info message still visible after its ttl")
	}

	f.Err(errors.New("boom"))
	now = now.Add(warnTTL)
	if m := f.Current(); m == nil || m.Level != FlashErr {
		t.Errorf("error message should outlive a warning, got %+v", m)
	}

	f.Clear()
	if f.Current() != nil {
		t.Error("Clear() left a message")
	}
}

func TestFlashBarEscapesText(t *testing.T) {
	fb := NewFlashBar(DefaultTheme())
	fb.Update(&FlashMessage{Text: "[red]not a tag", Level: FlashWarn})
	if got := fb.GetText(true); !strings.Contains(got, "not a tag") {
		t.Errorf("bar text = %q", got)
	}
	fb.Update(nil)
	if got := fb.GetText(true); got != "" {
		t.Errorf("bar not cleared: %q", got)
	}
}

func TestHex(t *testing.T) {
	if got := hex6(0x9370db); got != "9370db" {
		t.Errorf("hex6 = %q", got)
	}
	if got := hex6(0x00000f); got != "00000f" {
		t.Errorf("hex6 = %q", got)
	}
}
