package device

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Screen is the full-screen terminal surface. All writes go through Draw so a frame
// is flushed as one synchronized update.
type Screen struct {
	mu     sync.Mutex
	out    *bufio.Writer
	outFd  int
	closed bool
}

// OpenScreen switches out to the alternate screen with the cursor hidden.
func OpenScreen(out *os.File) (*Screen, error) {
	if out == nil {
		return nil, fmt.Errorf("output is nil")
	}
	prepareConsole(out)
	s := &Screen{out: bufio.NewWriterSize(out, 1<<16), outFd: int(out.Fd())}
	s.write(enterAltScreenSeq())
	return s, nil
}

// Write sends raw control sequences, e.g. mouse reporting toggles.
func (s *Screen) Write(seq string) {
	s.write(seq)
}

// Draw homes the cursor and prints payload as one synchronized frame.
func (s *Screen) Draw(payload string) {
	if payload == "" {
		return
	}
	s.write(beginSync() + "\x1b[H" + payload + endSync())
}

// Clear wipes the visible screen, used after a resize.
func (s *Screen) Clear() {
	s.write("\x1b[2J\x1b[H")
}

func (s *Screen) write(seq string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	_, _ = io.WriteString(s.out, seq)
	_ = s.out.Flush()
}

// Size reports the terminal size in character cells.
func (s *Screen) Size() (cols, rows int, err error) {
	return term.GetSize(s.outFd)
}

// Close leaves the alternate screen. Later writes are dropped.
func (s *Screen) Close() error {
	s.write(exitAltScreenSeq())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func beginSync() string {
	if supportsSyncOutput {
		return "\x1b[?2026h"
	}
	return ""
}

func endSync() string {
	if supportsSyncOutput {
		return "\x1b[?2026l"
	}
	return ""
}

func enterAltScreenSeq() string {
	return "\x1b[?1049h\x1b[?25l\x1b[?7l\x1b[3J\x1b[H"
}

func exitAltScreenSeq() string {
	return endSync() + "\x1b[0m\x1b[?7h\x1b[?25h\x1b[?1049l"
}

// SupportsTrueColor reports whether the terminal advertises 24-bit colour.
func SupportsTrueColor() bool {
	ct := strings.ToLower(os.Getenv("COLORTERM"))
	return ct == "truecolor" || ct == "24bit" || platformTrueColor()
}

const osc52MaxClipboardBytes = 1 << 16

// CopyToClipboard copies text via OSC-52 and falls back to common OS clipboard helpers.
func (s *Screen) CopyToClipboard(text string) {
	if text == "" {
		return
	}
	_ = copyViaPlatformClipboard(text)
	s.copyViaOSC52(text)
}

func (s *Screen) copyViaOSC52(text string) bool {
	if text == "" || !term.IsTerminal(s.outFd) {
		return false
	}
	payload := []byte(text)
	if len(payload) > osc52MaxClipboardBytes {
		payload = payload[:osc52MaxClipboardBytes]
	}
	s.write(fmt.Sprintf("\x1b]52;c;%s\x07", base64.StdEncoding.EncodeToString(payload)))
	return true
}

func copyViaPlatformClipboard(text string) error {
	switch runtime.GOOS {
	case "darwin":
		return runClipboardCommand(text, "pbcopy")
	case "windows":
		return runClipboardCommandWithArgs(text, "cmd", "/c", "clip")
	default:
		commands := [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
			{"termux-clipboard-set"},
		}
		for _, cmd := range commands {
			if err := runClipboardCommand(text, cmd[0], cmd[1:]...); err == nil {
				return nil
			}
		}
		return fmt.Errorf("no clipboard helper found")
	}
}

func runClipboardCommand(text, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	return runClipboardCommandWithArgs(text, name, args...)
}

func runClipboardCommandWithArgs(text, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}
