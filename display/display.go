// Package display mirrors the serial line onto a small screen, scrolling like a terminal.
package display

import (
	"bytes"
	"image/color"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// Screen is implemented by *ssd1306.Device.
type Screen interface {
	Size() (x, y int16)
	SetPixel(x, y int16, c color.RGBA)
	Display() error
	FillRectangle(x, y, width, height int16, c color.RGBA) error
	SetScroll(line int16)
	SetScrollArea(topFixedArea, bottomFixedArea int16)
	StopScroll()
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Terminal is a serial.Port that prints lines on a Screen. Writes only touch the framebuffer; Service pushes it to
// the screen when something changed.
type Terminal struct {
	screen Screen
	term   *tinyterm.Terminal
	dirty  bool
}

func NewTerminal(screen Screen) *Terminal {
	term := tinyterm.NewTerminal(screen)
	term.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: 10,
		FontOffset: 6,
	})
	return &Terminal{screen: screen, term: term}
}

// Write prints p. Carriage returns are dropped, the terminal starts a new line on line feed alone.
func (t *Terminal) Write(p []byte) (int, error) {
	clean := bytes.ReplaceAll(p, []byte{'\r'}, nil)
	if _, err := t.term.Write(clean); err != nil {
		return 0, err
	}
	t.dirty = true
	return len(p), nil
}

func (t *Terminal) Flush() error {
	if !t.dirty {
		return nil
	}
	t.dirty = false
	return t.screen.Display()
}

// Service pushes the framebuffer to the screen if it changed. Errors are dropped: a screen that went away should not
// stop sampling.
func (t *Terminal) Service() {
	t.Flush()
}

// Banner writes text in the given font at x, y (the text baseline) and displays it.
func Banner(screen Screen, font *tinyfont.Font, x, y int16, text string) error {
	tinyfont.WriteLine(screen, font, x, y, text, white)
	return screen.Display()
}
