// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/jeranaias/ntsc-tui/internal/effect"
)

const (
	// undoStableTime is how long settings must stay unchanged before they
	// become an undo point, so a slider drag is one step.
	undoStableTime = 1.0
	// undoAutoSave records a point during a long continuous change.
	undoAutoSave = 30.0
	maxUndos     = 100
)

// flux tracks settings that differ from the last undo point but have not
// settled yet.
type flux struct {
	start      float64
	lastChange float64
	state      effect.Settings
}

// undoer keeps time-coalesced snapshots of the effect settings. It is fed
// the current settings once per frame.
type undoer struct {
	undos []effect.Settings
	redos []effect.Settings
	flux  *flux
}

func same(a, b effect.Settings) bool { return a.Equal(b) }

func (u *undoer) latest() (effect.Settings, bool) {
	if len(u.undos) == 0 {
		return effect.Settings{}, false
	}
	return u.undos[len(u.undos)-1], true
}

func (u *undoer) isLatest(s effect.Settings) bool {
	l, ok := u.latest()
	return ok && same(l, s)
}

// Feed observes the settings at time now.
func (u *undoer) Feed(now float64, current effect.Settings) {
	if len(u.undos) == 0 {
		u.add(current)
		return
	}
	if u.isLatest(current) {
		u.flux = nil
		return
	}

	u.redos = nil
	switch {
	case u.flux == nil:
		u.flux = &flux{start: now, lastChange: now, state: current.Clone()}
	case same(u.flux.state, current):
		if now-u.flux.lastChange >= undoStableTime {
			u.add(current)
		}
	case now-u.flux.start >= undoAutoSave:
		u.add(current)
	default:
		u.flux.lastChange = now
		u.flux.state = current.Clone()
	}
}

func (u *undoer) add(s effect.Settings) {
	if !u.isLatest(s) {
		u.undos = append(u.undos, s.Clone())
		if len(u.undos) > maxUndos {
			u.undos = u.undos[1:]
		}
	}
	u.flux = nil
}

// HasUndo reports whether Undo would change current.
func (u *undoer) HasUndo(current effect.Settings) bool {
	switch len(u.undos) {
	case 0:
		return false
	case 1:
		return !u.isLatest(current)
	default:
		return true
	}
}

// HasRedo reports whether Redo would change current.
func (u *undoer) HasRedo(current effect.Settings) bool {
	return u.isLatest(current) && len(u.redos) > 0
}

// Undo returns the settings to go back to. Unsaved changes are undone to
// the last point first.
func (u *undoer) Undo(current effect.Settings) (effect.Settings, bool) {
	if !u.HasUndo(current) {
		return effect.Settings{}, false
	}
	u.flux = nil
	if u.isLatest(current) {
		u.redos = append(u.redos, u.undos[len(u.undos)-1])
		u.undos = u.undos[:len(u.undos)-1]
	} else {
		u.redos = append(u.redos, current.Clone())
	}
	l, _ := u.latest()
	return l.Clone(), true
}

// Redo returns the settings undone last. Any change since the undo drops
// the redo history.
func (u *undoer) Redo(current effect.Settings) (effect.Settings, bool) {
	if len(u.undos) > 0 && !u.isLatest(current) {
		u.redos = nil
		return effect.Settings{}, false
	}
	if len(u.redos) == 0 {
		return effect.Settings{}, false
	}
	s := u.redos[len(u.redos)-1]
	u.redos = u.redos[:len(u.redos)-1]
	u.undos = append(u.undos, s)
	return s.Clone(), true
}
