package models

import (
	"fmt"
	"testing"
)

func TestPhase_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseGather, PhaseNegotiate, true},
		{PhaseGather, PhaseFinalize, true},
		{PhaseNegotiate, PhaseFinalize, true},
		{PhaseNegotiate, PhaseGather, false},
		{PhaseFinalize, PhaseNegotiate, false},
		{PhaseGather, PhaseGather, false},
	}

	for _, tc := range tests {
		if got := tc.from.CanAdvanceTo(tc.to); got != tc.want {
			t.Errorf("CanAdvanceTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOverseerState_FlagIssue_Caps(t *testing.T) {
	s := NewOverseerState("c1")
	for i := 0; i < MaxFlaggedIssues+5; i++ {
		s = s.FlagIssue(fmt.Sprintf("issue-%d", i))
	}

	if len(s.FlaggedIssues) != MaxFlaggedIssues {
		t.Fatalf("expected cap of %d, got %d", MaxFlaggedIssues, len(s.FlaggedIssues))
	}
	// Most recent entries are kept.
	want := fmt.Sprintf("issue-%d", MaxFlaggedIssues+4)
	if got := s.FlaggedIssues[len(s.FlaggedIssues)-1]; got != want {
		t.Errorf("expected last issue %q, got %q", want, got)
	}
	want = "issue-5"
	if got := s.FlaggedIssues[0]; got != want {
		t.Errorf("expected first issue %q, got %q", want, got)
	}
}

func TestNewOverseerState_Defaults(t *testing.T) {
	s := NewOverseerState("c1")

	if s.Phase != PhaseGather {
		t.Errorf("expected initial phase GATHER, got %s", s.Phase)
	}
	if s.InfoWeNeed.UnitPrices != InfoPending {
		t.Errorf("expected pending unit prices, got %s", s.InfoWeNeed.UnitPrices)
	}
	if s.InfoTheyWant.Quantity != AskNotAsked {
		t.Errorf("expected not_asked quantity, got %s", s.InfoTheyWant.Quantity)
	}
}
