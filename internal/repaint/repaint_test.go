// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package repaint

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignal_CoalescesRequests(t *testing.T) {
	s := NewSignal()
	for i := 0; i < 10; i++ {
		s.RequestRepaint()
	}

	select {
	case <-s.C():
	default:
		t.Fatal("expected a pending signal")
	}

	select {
	case <-s.C():
		t.Fatal("requests should coalesce into one signal")
	default:
	}
}

func TestSignal_ConcurrentRequests(t *testing.T) {
	s := NewSignal()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RequestRepaint()
		}()
	}
	wg.Wait()
	require.Len(t, s.C(), 1)
}

func TestProgram_UnattachedRequestIsRemembered(t *testing.T) {
	p := NewProgram()
	p.RequestRepaint()
	p.RequestRepaint()
	require.True(t, p.inFlight.Load())

	p.Ack()
	require.False(t, p.inFlight.Load())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.RequestRepaint()
	r.RequestRepaint()
	require.Equal(t, 2, r.Count())
	r.Reset()
	require.Zero(t, r.Count())
}
