//go:build !windows

package device

import "os"

// Synchronized output (DEC mode 2026) is understood or safely ignored by unix terminals.
const supportsSyncOutput = true

func prepareConsole(*os.File) {}

func platformTrueColor() bool { return false }
