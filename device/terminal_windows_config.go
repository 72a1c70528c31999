//go:build windows

package device

import (
	"os"

	"golang.org/x/sys/windows"
)

const utf8CodePage = 65001

// Windows consoles ignore DEC mode 2026, so frames are written without sync markers.
const supportsSyncOutput = false

// prepareConsole turns on VT processing for out and stderr and switches the console
// to UTF-8 so ramp and half-block glyphs survive. Non-console handles are left alone.
func prepareConsole(out *os.File) {
	for _, h := range []windows.Handle{windows.Handle(out.Fd()), windows.Handle(os.Stderr.Fd())} {
		if h == windows.InvalidHandle {
			continue
		}
		var mode uint32
		if err := windows.GetConsoleMode(h, &mode); err != nil {
			continue
		}
		mode |= windows.ENABLE_PROCESSED_OUTPUT | windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING
		mode &^= windows.DISABLE_NEWLINE_AUTO_RETURN
		_ = windows.SetConsoleMode(h, mode)
	}
	_ = windows.SetConsoleOutputCP(utf8CodePage)
	_ = windows.SetConsoleCP(utf8CodePage)
}

// Windows Terminal renders 24-bit colour but does not set COLORTERM.
func platformTrueColor() bool {
	return os.Getenv("WT_SESSION") != ""
}
