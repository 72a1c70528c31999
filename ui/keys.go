package ui

import (
	"bufio"
	"context"
	"io"
)

// Action is a user command decoded from terminal input.
type Action int

const (
	ActionNone Action = iota
	ActionToggle
	ActionPrev
	ActionNext
	ActionSlower
	ActionFaster
	ActionVolumeUp
	ActionVolumeDown
	ActionMute
	ActionQuality
	ActionColor
	ActionCopy
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionToggle:
		return "toggle"
	case ActionPrev:
		return "prev"
	case ActionNext:
		return "next"
	case ActionSlower:
		return "slower"
	case ActionFaster:
		return "faster"
	case ActionVolumeUp:
		return "volume_up"
	case ActionVolumeDown:
		return "volume_down"
	case ActionMute:
		return "mute"
	case ActionQuality:
		return "quality"
	case ActionColor:
		return "color"
	case ActionCopy:
		return "copy"
	case ActionQuit:
		return "quit"
	}
	return "none"
}

type mouseEvent struct {
	button  int
	col     int
	row     int
	pressed bool
}

// ReadActions decodes r until it fails or ctx is done. The channel is closed on exit.
func ReadActions(ctx context.Context, r io.Reader) <-chan Action {
	out := make(chan Action, 8)
	go func() {
		defer close(out)
		reader := bufio.NewReader(r)
		for {
			a, err := readAction(reader)
			if err != nil {
				return
			}
			if a == ActionNone {
				continue
			}
			select {
			case out <- a:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func readAction(r *bufio.Reader) (Action, error) {
	b, err := r.ReadByte()
	if err != nil {
		return ActionNone, err
	}
	switch b {
	case ' ', 'p', 'P':
		return ActionToggle, nil
	case 'q', 'Q', 0x03:
		return ActionQuit, nil
	case 'h', ',':
		return ActionPrev, nil
	case 'l', '.':
		return ActionNext, nil
	case '[':
		return ActionSlower, nil
	case ']':
		return ActionFaster, nil
	case '+', '=':
		return ActionVolumeUp, nil
	case '-', '_':
		return ActionVolumeDown, nil
	case 'm', 'M':
		return ActionMute, nil
	case 't', 'T':
		return ActionQuality, nil
	case 'c', 'C':
		return ActionColor, nil
	case 'y', 'Y':
		return ActionCopy, nil
	case 0x1b: // ESC
		if r.Buffered() == 0 {
			return ActionNone, nil
		}
		return readEscape(r)
	}
	return ActionNone, nil
}

func readEscape(r *bufio.Reader) (Action, error) {
	intro, err := r.ReadByte()
	if err != nil {
		return ActionNone, err
	}
	if intro != '[' && intro != 'O' {
		// ESC followed by an ordinary key: keep the key.
		_ = r.UnreadByte()
		return ActionNone, nil
	}
	if intro == '[' {
		if p, err := r.Peek(1); err == nil && p[0] == '<' {
			_, _ = r.ReadByte()
			evt, ok := parseSGRMouse(r)
			if ok && evt.pressed && evt.button&0x03 == 0 && evt.button < 32 {
				return ActionToggle, nil
			}
			return ActionNone, nil
		}
	}
	final, err := r.ReadByte()
	if err != nil {
		return ActionNone, err
	}
	// CSI parameter and intermediate bytes (modifiers such as "1;5") come before the final byte.
	for intro == '[' && final >= 0x20 && final <= 0x3f {
		if final, err = r.ReadByte(); err != nil {
			return ActionNone, err
		}
	}
	switch final {
	case 'C':
		return ActionNext, nil
	case 'D':
		return ActionPrev, nil
	case 'A':
		return ActionVolumeUp, nil
	case 'B':
		return ActionVolumeDown, nil
	}
	return ActionNone, nil
}

// parseSGRMouse reads "b;col;row(M|m)" after the "ESC [ <" prefix.
func parseSGRMouse(r *bufio.Reader) (mouseEvent, bool) {
	var evt mouseEvent
	btn, sep, err := readMouseComponent(r)
	if err != nil || sep != ';' {
		return evt, false
	}
	col, sep, err := readMouseComponent(r)
	if err != nil || sep != ';' {
		return evt, false
	}
	row, final, err := readMouseComponent(r)
	if err != nil {
		return evt, false
	}
	evt.button = btn
	evt.col = col
	evt.row = row
	evt.pressed = final == 'M'
	return evt, true
}

func readMouseComponent(r *bufio.Reader) (int, byte, error) {
	val := 0
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		if b >= '0' && b <= '9' {
			val = val*10 + int(b-'0')
			continue
		}
		return val, b, nil
	}
}

func enableMouseReporting() string {
	return "\x1b[?1000h\x1b[?1006h"
}

func disableMouseReporting() string {
	return "\x1b[?1000l\x1b[?1006l"
}
