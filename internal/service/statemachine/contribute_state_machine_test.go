package statemachine

import (
	"errors"
	"testing"
)

// TestContributeStateMachineTransitions 逐一验证全部状态组合
func TestContributeStateMachineTransitions(t *testing.T) {
	sm := NewContributeStateMachine()

	statuses := []ContributeStatus{
		ContributeStatusPending,
		ContributeStatusVoting,
		ContributeStatusDebating,
		ContributeStatusMerged,
		ContributeStatusRejected,
	}

	allowed := map[ContributeTransition]bool{
		{ContributeStatusPending, ContributeStatusVoting}:    true,
		{ContributeStatusPending, ContributeStatusRejected}:  true,
		{ContributeStatusVoting, ContributeStatusMerged}:     true,
		{ContributeStatusVoting, ContributeStatusRejected}:   true,
		{ContributeStatusVoting, ContributeStatusDebating}:   true,
		{ContributeStatusDebating, ContributeStatusMerged}:   true,
		{ContributeStatusDebating, ContributeStatusRejected}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[ContributeTransition{From: from, To: to}]
			if got := sm.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestContributeStateMachineValidateTransition(t *testing.T) {
	sm := NewContributeStateMachine()

	if err := sm.ValidateTransition(ContributeStatusPending, ContributeStatusVoting); err != nil {
		t.Fatalf("expected valid transition, got error: %v", err)
	}

	err := sm.ValidateTransition(ContributeStatusMerged, ContributeStatusVoting)
	if err == nil {
		t.Fatal("expected error for transition from terminal state")
	}
	var transitionErr *InvalidContributeStateTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidContributeStateTransitionError, got %T", err)
	}
	if transitionErr.From != "merged" || transitionErr.To != "voting" {
		t.Fatalf("unexpected error fields: %+v", transitionErr)
	}
}

func TestContributeStateMachineSameStateRejected(t *testing.T) {
	sm := NewContributeStateMachine()
	for _, status := range []ContributeStatus{
		ContributeStatusPending, ContributeStatusVoting, ContributeStatusDebating,
		ContributeStatusMerged, ContributeStatusRejected,
	} {
		if sm.CanTransition(status, status) {
			t.Errorf("expected same-state transition %s -> %s to be rejected", status, status)
		}
	}
}

func TestContributeStatusHelpers(t *testing.T) {
	if !IsTerminal(ContributeStatusMerged) || !IsTerminal(ContributeStatusRejected) {
		t.Fatal("merged/rejected should be terminal")
	}
	if IsTerminal(ContributeStatusPending) || IsTerminal(ContributeStatusVoting) || IsTerminal(ContributeStatusDebating) {
		t.Fatal("pending/voting/debating should not be terminal")
	}

	if !CanVote(ContributeStatusVoting) || !CanVote(ContributeStatusDebating) {
		t.Fatal("voting/debating should accept votes")
	}
	if CanVote(ContributeStatusPending) || CanVote(ContributeStatusMerged) || CanVote(ContributeStatusRejected) {
		t.Fatal("pending/merged/rejected should not accept votes")
	}

	if !CanWithdraw(ContributeStatusPending) || !CanWithdraw(ContributeStatusVoting) {
		t.Fatal("pending/voting should allow withdraw")
	}
	if CanWithdraw(ContributeStatusDebating) || CanWithdraw(ContributeStatusMerged) || CanWithdraw(ContributeStatusRejected) {
		t.Fatal("debating/merged/rejected should not allow withdraw")
	}
}
