// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package graph

import (
	"os"

	"golang.org/x/sys/unix"
)

// suspendProcess stops p in place so a paused graph keeps its decode state.
func suspendProcess(p *os.Process) error {
	return unix.Kill(p.Pid, unix.SIGSTOP)
}

func resumeProcess(p *os.Process) error {
	return unix.Kill(p.Pid, unix.SIGCONT)
}
