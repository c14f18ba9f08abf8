//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// detach runs cmd in its own process group with no stdio, so the server
// keeps running when the terminal closes
func detach(cmd *exec.Cmd) {
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
