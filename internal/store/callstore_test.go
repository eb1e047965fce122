package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quotecall/quotecall/pkg/models"
)

func newTestStore() (*CallStore, *time.Time) {
	kv, now := newTestKV()
	return NewCallStore(kv), now
}

func TestCallStore_SaveAndLoadCallState(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	state := models.CallState{
		CallID:         "call-1",
		QuoteRequestID: "req-1",
		SupplierName:   "Acme Parts",
		Status:         models.CallInProgress,
	}
	if err := s.SaveCallState(ctx, state); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetCallState(ctx, "call-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.SupplierName != "Acme Parts" || got.Status != models.CallInProgress {
		t.Errorf("unexpected state: %+v", got)
	}

	if _, err := s.GetCallState(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCallStore_ActiveCallStates_PrunesStale(t *testing.T) {
	ctx := context.Background()
	kv, _ := newTestKV()
	s := NewCallStore(kv)

	for _, id := range []string{"call-1", "call-2"} {
		if err := s.SaveCallState(ctx, models.CallState{CallID: id, QuoteRequestID: "req-1"}); err != nil {
			t.Fatal(err)
		}
	}

	// Simulate call-2's state expiring while the index entry remains.
	if err := kv.Delete(ctx, callKey("call-2")); err != nil {
		t.Fatal(err)
	}
	if err := kv.SAdd(ctx, requestCallsKey("req-1"), "call-2"); err != nil {
		t.Fatal(err)
	}

	states, err := s.ActiveCallStates(ctx, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 1 || states[0].CallID != "call-1" {
		t.Fatalf("expected only call-1, got %+v", states)
	}

	// The stale index entry was pruned.
	members, _ := kv.SMembers(ctx, requestCallsKey("req-1"))
	if len(members) != 1 || members[0] != "call-1" {
		t.Errorf("expected pruned index [call-1], got %v", members)
	}
}

func TestCallStore_CallLock(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore()

	if err := s.AcquireCallLock(ctx, "call-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.AcquireCallLock(ctx, "call-1"); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}

	if err := s.ReleaseCallLock(ctx, "call-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.AcquireCallLock(ctx, "call-1"); err != nil {
		t.Fatalf("expected reacquire after release, got %v", err)
	}

	// A crashed holder's lock expires on its own.
	*now = now.Add(CallLockTTL + time.Second)
	if err := s.ReleaseCallLock(ctx, "call-1"); err != nil {
		t.Fatal(err)
	}
}

func TestCallStore_NudgeSlot(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	if _, ok, err := s.ConsumeNudge(ctx, "call-1"); err != nil || ok {
		t.Fatalf("expected no staged nudge: ok=%v err=%v", ok, err)
	}

	first := models.OverseerNudge{Priority: models.NudgeP1, Text: "ask about lead time"}
	second := models.OverseerNudge{Priority: models.NudgeP0, Text: "counter with competing price"}
	if err := s.StageNudge(ctx, "call-1", first); err != nil {
		t.Fatal(err)
	}
	if err := s.StageNudge(ctx, "call-1", second); err != nil {
		t.Fatal(err)
	}

	// Staging overwrites; consumption is once-only.
	nudge, ok, err := s.ConsumeNudge(ctx, "call-1")
	if err != nil || !ok {
		t.Fatalf("expected staged nudge: ok=%v err=%v", ok, err)
	}
	if nudge.Text != second.Text || nudge.Priority != models.NudgeP0 {
		t.Errorf("expected last-writer-wins, got %+v", nudge)
	}

	if _, ok, _ := s.ConsumeNudge(ctx, "call-1"); ok {
		t.Error("expected nudge slot empty after consume")
	}
}

func TestCallStore_Directives(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	push := func(dt models.DirectiveType) {
		t.Helper()
		if err := s.PushDirective(ctx, models.CommanderDirective{
			DirectiveType: dt,
			TargetCallID:  "call-1",
			Message:       string(dt),
		}); err != nil {
			t.Fatal(err)
		}
	}

	push(models.DirectiveLeverageUpdate)
	push(models.DirectiveEscalate)
	push(models.DirectiveWrapUp)

	// Peek sorts by priority without consuming.
	directives, err := s.PeekDirectives(ctx, "call-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(directives) != 3 {
		t.Fatalf("expected 3 directives, got %d", len(directives))
	}
	wantOrder := []models.DirectiveType{
		models.DirectiveEscalate,
		models.DirectiveWrapUp,
		models.DirectiveLeverageUpdate,
	}
	for i, want := range wantOrder {
		if directives[i].DirectiveType != want {
			t.Errorf("position %d: expected %s, got %s", i, want, directives[i].DirectiveType)
		}
	}

	// Still present after peek.
	again, _ := s.PeekDirectives(ctx, "call-1")
	if len(again) != 3 {
		t.Errorf("peek should not consume, got %d", len(again))
	}

	if err := s.ConsumeDirectives(ctx, "call-1"); err != nil {
		t.Fatal(err)
	}
	empty, _ := s.PeekDirectives(ctx, "call-1")
	if len(empty) != 0 {
		t.Errorf("expected empty inbox after consume, got %d", len(empty))
	}
}

func TestCallStore_OverseerAndCommanderState(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	os := models.NewOverseerState("call-1")
	os.Phase = models.PhaseNegotiate
	if err := s.SaveOverseerState(ctx, os); err != nil {
		t.Fatal(err)
	}
	gotOS, err := s.GetOverseerState(ctx, "call-1")
	if err != nil {
		t.Fatal(err)
	}
	if gotOS.Phase != models.PhaseNegotiate {
		t.Errorf("expected NEGOTIATE, got %s", gotOS.Phase)
	}

	cs := models.NewCommanderState("req-1")
	cs.EventsProcessed = 3
	if err := s.SaveCommanderState(ctx, cs); err != nil {
		t.Fatal(err)
	}
	gotCS, err := s.GetCommanderState(ctx, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if gotCS.EventsProcessed != 3 {
		t.Errorf("expected 3 events processed, got %d", gotCS.EventsProcessed)
	}
}
