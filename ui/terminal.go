package ui

import (
	"errors"
	"os"

	"golang.org/x/term"

	"github.com/svanichkin/asciiplay/device"
	"github.com/svanichkin/asciiplay/logs"
)

// Terminal is an interactive session: the full-screen surface plus unbuffered input
// with mouse reporting.
type Terminal struct {
	*device.Screen
	restore func()
}

// OpenTerminal requires out to be a terminal. Input preparation failures only disable
// key handling.
func OpenTerminal(in, out *os.File) (*Terminal, error) {
	if !term.IsTerminal(int(out.Fd())) {
		return nil, errors.New("stdout is not a terminal")
	}
	screen, err := device.OpenScreen(out)
	if err != nil {
		return nil, err
	}
	t := &Terminal{Screen: screen}
	if in != nil && term.IsTerminal(int(in.Fd())) {
		restore, err := prepareInput(int(in.Fd()))
		if err != nil {
			logs.LogV("[term] key input disabled: %v", err)
		} else {
			t.restore = restore
			screen.Write(enableMouseReporting())
		}
	}
	return t, nil
}

func (t *Terminal) Close() error {
	if t.restore != nil {
		t.Screen.Write(disableMouseReporting())
	}
	err := t.Screen.Close()
	if t.restore != nil {
		t.restore()
	}
	return err
}
