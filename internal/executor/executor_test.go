// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package executor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jeranaias/ntsc-tui/internal/repaint"
)

type counterState struct {
	applied []string
}

func record(name string) Action[*counterState] {
	return func(s *counterState) error {
		s.applied = append(s.applied, name)
		return nil
	}
}

// =============================================================================
// SPAWN / TICK
// =============================================================================

func TestSpawn_SynchronousCompletionIsVisibleWithoutTick(t *testing.T) {
	var rec repaint.Recorder
	exec := New[*counterState](&rec)

	exec.Spawn(Ready(record("now")), false)

	require.Zero(t, exec.Pending())
	require.Equal(t, 1, exec.Queued())
	require.Zero(t, rec.Count(), "a task that completes on spawn needs no repaint")

	actions := exec.Tick()
	require.Len(t, actions, 1)

	state := &counterState{}
	require.NoError(t, actions[0](state))
	require.Equal(t, []string{"now"}, state.applied)
}

func TestSpawn_DeferredTaskWaitsForTick(t *testing.T) {
	var rec repaint.Recorder
	exec := New[*counterState](&rec)

	polled := 0
	exec.Spawn(TaskFunc[*counterState](func(Waker) (Action[*counterState], bool) {
		polled++
		return record("later"), true
	}), true)

	require.Equal(t, 0, polled, "deferred tasks are not polled on spawn")
	require.Equal(t, 1, exec.Pending())
	require.Equal(t, 1, rec.Count())

	actions := exec.Tick()
	require.Len(t, actions, 1)
	require.Equal(t, 1, polled)
	require.Zero(t, exec.Pending())
}

func TestSpawn_NilResultQueuesNothing(t *testing.T) {
	exec := New[*counterState](repaint.Nop)
	exec.Spawn(Ready[*counterState](nil), false)
	require.Empty(t, exec.Tick())
}

func TestTick_EmptyIsIdempotent(t *testing.T) {
	var rec repaint.Recorder
	exec := New[*counterState](&rec)

	for i := 0; i < 3; i++ {
		require.Empty(t, exec.Tick())
	}
	require.Zero(t, rec.Count())
	require.Zero(t, exec.Pending())
}

func TestTick_PendingTaskIsWokenByFuture(t *testing.T) {
	var rec repaint.Recorder
	exec := New[*counterState](&rec)

	fut := NewFuture[string]()
	exec.Spawn(Await(fut, func(s string) Action[*counterState] { return record(s) }), false)
	require.Equal(t, 1, exec.Pending())
	before := rec.Count()

	require.Empty(t, exec.Tick())
	require.Equal(t, 1, exec.Pending())

	require.True(t, fut.Resolve("picked"))
	require.Greater(t, rec.Count(), before, "resolving must wake the UI")

	actions := exec.Tick()
	require.Len(t, actions, 1)
	require.Zero(t, exec.Pending())

	// Never polled again.
	require.Empty(t, exec.Tick())
}

func TestClose_ReleasesPendingTasks(t *testing.T) {
	exec := New[*counterState](repaint.Nop)

	fut := NewFuture[int]()
	dropped := false
	fut.OnDrop(func() { dropped = true })
	exec.Spawn(Await(fut, func(int) Action[*counterState] { return nil }), true)

	exec.Close()
	require.True(t, dropped)
	require.False(t, fut.Resolve(1), "released futures ignore late results")

	late := NewFuture[int]()
	exec.Spawn(Await(late, func(int) Action[*counterState] { return nil }), true)
	require.Zero(t, exec.Pending())
}

// =============================================================================
// DRIVE
// =============================================================================

func TestDrive_AppliesActionsSpawnedByActions(t *testing.T) {
	exec := New[*counterState](repaint.Nop)
	state := &counterState{}

	exec.Spawn(Ready(func(s *counterState) error {
		s.applied = append(s.applied, "first")
		// Spawning from inside an action must not deadlock.
		exec.Spawn(Ready(record("second")), false)
		return nil
	}), true)

	n := Drive(exec, state, nil)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"first", "second"}, state.applied)
}

func TestDrive_ErrorsDoNotAbortFrame(t *testing.T) {
	exec := New[*counterState](repaint.Nop)
	state := &counterState{}
	boom := errors.New("write failed")

	exec.Spawn(Ready(func(*counterState) error { return boom }), false)
	exec.Spawn(Ready(record("after")), false)

	var errs []error
	Drive(exec, state, func(err error) { errs = append(errs, err) })

	require.Equal(t, []error{boom}, errs)
	require.Equal(t, []string{"after"}, state.applied)
}

func TestDeferrer_ErrorBecomesAction(t *testing.T) {
	var rec repaint.Recorder
	exec := New[*counterState](&rec)
	boom := errors.New("stop failed")

	ran := 0
	exec.Deferrer().Defer(func() error {
		ran++
		return boom
	})
	require.Zero(t, ran)
	require.Equal(t, 1, rec.Count())

	var got error
	Drive(exec, &counterState{}, func(err error) { got = err })
	require.Equal(t, 1, ran)
	require.ErrorIs(t, got, boom)
}

// =============================================================================
// PROPERTIES
// =============================================================================

// TestProperty_ActionsRunOnceAfterCompletion interleaves spawns, resolutions
// and ticks at random and checks that every action runs at most once and
// only after its task completed.
func TestProperty_ActionsRunOnceAfterCompletion(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		exec := New[*counterState](repaint.Nop)

		var futures []*Future[int]
		runs := map[int]int{}
		resolved := map[int]bool{}

		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 60).Draw(t, "ops")
		for _, op := range ops {
			switch op {
			case 0:
				id := len(futures)
				fut := NewFuture[int]()
				futures = append(futures, fut)
				if rapid.Bool().Draw(t, "resolveFirst") {
					fut.Resolve(id)
					resolved[id] = true
				}
				exec.Spawn(Await(fut, func(v int) Action[*counterState] {
					return func(*counterState) error {
						if !resolved[v] {
							t.Fatalf("action %d ran before its task completed", v)
						}
						runs[v]++
						return nil
					}
				}), rapid.Bool().Draw(t, "defer"))
			case 1:
				if len(futures) == 0 {
					continue
				}
				id := rapid.IntRange(0, len(futures)-1).Draw(t, "resolve")
				if futures[id].Resolve(id) {
					resolved[id] = true
				}
			case 2:
				Drive(exec, &counterState{}, nil)
			}
		}
		Drive(exec, &counterState{}, nil)

		for id := range futures {
			if resolved[id] {
				if runs[id] != 1 {
					t.Fatalf("action %d ran %d times", id, runs[id])
				}
			} else if runs[id] != 0 {
				t.Fatalf("unresolved task %d produced an action", id)
			}
		}
	})
}
