// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ntsc-tui/internal/effect"
)

func smear(v float64) effect.Settings {
	s := effect.Default()
	s.LumaSmear = v
	return s
}

func TestUndoer_CoalescesUntilStable(t *testing.T) {
	var u undoer
	a, b, c, d := smear(0.1), smear(0.2), smear(0.3), smear(0.4)

	u.Feed(0, a)
	assert.False(t, u.HasUndo(a), "the first state is not undoable")

	u.Feed(0.1, b)
	u.Feed(0.5, b)
	require.Len(t, u.undos, 1, "not stable yet")
	u.Feed(1.2, b)
	require.Len(t, u.undos, 2)

	// A drag through c lands on d; only d is recorded.
	u.Feed(2.0, c)
	u.Feed(2.5, d)
	u.Feed(3.6, d)
	require.Len(t, u.undos, 3)
	assert.True(t, same(u.undos[2], d))
}

func TestUndoer_UndoRedo(t *testing.T) {
	var u undoer
	a, b := smear(0.1), smear(0.2)
	u.Feed(0, a)
	u.Feed(1, b)
	u.Feed(2.5, b)

	got, ok := u.Undo(b)
	require.True(t, ok)
	assert.True(t, same(got, a))
	assert.True(t, u.HasRedo(a))

	got, ok = u.Redo(a)
	require.True(t, ok)
	assert.True(t, same(got, b))
	assert.False(t, u.HasRedo(b))
}

func TestUndoer_UndoDiscardsUnsavedChange(t *testing.T) {
	var u undoer
	a, b := smear(0.1), smear(0.7)
	u.Feed(0, a)

	// b was never fed long enough to be recorded.
	got, ok := u.Undo(b)
	require.True(t, ok)
	assert.True(t, same(got, a))

	got, ok = u.Redo(a)
	require.True(t, ok)
	assert.True(t, same(got, b), "the unsaved change can be redone")
}

func TestUndoer_ChangeDropsRedo(t *testing.T) {
	var u undoer
	a, b, c := smear(0.1), smear(0.2), smear(0.3)
	u.Feed(0, a)
	u.Feed(1, b)
	u.Feed(2.5, b)
	_, ok := u.Undo(b)
	require.True(t, ok)

	u.Feed(3, c)
	_, ok = u.Redo(c)
	assert.False(t, ok)
}

func TestUndoer_AutoSavesLongChanges(t *testing.T) {
	var u undoer
	u.Feed(0, smear(0))
	for i := 1; i <= 40; i++ {
		u.Feed(float64(i)*0.9, smear(float64(i)/100))
	}
	assert.Greater(t, len(u.undos), 1, "a continuous change still records points")
}

func TestUndoer_Bounded(t *testing.T) {
	var u undoer
	now := 0.0
	for i := 0; i < maxUndos+20; i++ {
		s := smear(float64(i) / 1000)
		u.Feed(now, s)
		now += 2
		u.Feed(now, s)
		now += 2
	}
	assert.Len(t, u.undos, maxUndos)
}
