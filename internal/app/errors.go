// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"errors"
	"fmt"
)

// ErrUserCancelled is returned by actions whose dialog was dismissed. It is
// absorbed by HandleError and never shown.
var ErrUserCancelled = errors.New("cancelled by user")

// ErrorKind says which user operation failed.
type ErrorKind int

const (
	KindLoadVideo ErrorKind = iota
	KindCreatePipeline
	KindPlayback
	KindCreateRenderJob
	KindRender
	KindPresetRead
	KindPresetParse
	KindPresetSave
	KindClipboard
)

func (k ErrorKind) String() string {
	switch k {
	case KindLoadVideo:
		return "Error loading video"
	case KindCreatePipeline:
		return "Error creating pipeline"
	case KindPlayback:
		return "Error playing video"
	case KindCreateRenderJob:
		return "Error creating render job"
	case KindRender:
		return "Error rendering video"
	case KindPresetRead:
		return "Error reading JSON"
	case KindPresetParse:
		return "Error parsing JSON"
	case KindPresetSave:
		return "Error saving JSON"
	case KindClipboard:
		return "Clipboard error"
	default:
		return fmt.Sprintf("Error (%d)", int(k))
	}
}

// Error is an application error shown to the user.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}
