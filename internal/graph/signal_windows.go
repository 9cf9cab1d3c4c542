// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package graph

import (
	"errors"
	"os"
)

// errSuspendUnsupported makes the graph fall back to stopping the process
// and restarting it at the paused position.
var errSuspendUnsupported = errors.New("process suspension not supported")

func suspendProcess(*os.Process) error { return errSuspendUnsupported }

func resumeProcess(*os.Process) error { return errSuspendUnsupported }
