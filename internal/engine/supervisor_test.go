package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupervisor_TryAcquireIsExclusive(t *testing.T) {
	s := NewSupervisor()
	assert.True(t, s.TryAcquire("flow-1"))
	assert.False(t, s.TryAcquire("flow-1"), "a second acquire for the same flow must fail while the first is held")

	s.Release("flow-1")
	assert.True(t, s.TryAcquire("flow-1"), "released flows can be re-acquired")
}

func TestSupervisor_RequestCancelClosesChan(t *testing.T) {
	s := NewSupervisor()
	s.TryAcquire("flow-1")
	ch := s.CancelChan("flow-1")

	select {
	case <-ch:
		t.Fatal("cancel channel should not be closed yet")
	default:
	}

	s.RequestCancel("flow-1")
	select {
	case <-ch:
	default:
		t.Fatal("cancel channel should be closed after RequestCancel")
	}

	// double-cancel must not panic
	s.RequestCancel("flow-1")
}

func TestSupervisor_CancelChanForUnknownFlowIsPreClosed(t *testing.T) {
	s := NewSupervisor()
	ch := s.CancelChan("never-acquired")
	select {
	case <-ch:
	default:
		t.Fatal("expected a pre-closed channel for an unknown flow")
	}
}

func TestSupervisor_MarkAndWasMatched(t *testing.T) {
	s := NewSupervisor()
	assert.False(t, s.WasMatched("flow-1", "noble_cctp_minted"))
	s.MarkMatched("flow-1", "noble_cctp_minted")
	assert.True(t, s.WasMatched("flow-1", "noble_cctp_minted"))
	assert.False(t, s.WasMatched("flow-1", "noble_ibc_forwarded"))
}
