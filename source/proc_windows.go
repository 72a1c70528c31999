//go:build windows

package source

import (
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
	cmd.WaitDelay = 2 * time.Second
}
