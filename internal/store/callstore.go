package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/quotecall/quotecall/pkg/models"
)

// ErrLockHeld signals that another worker is processing the call's
// turn. It is control flow, not a failure.
var ErrLockHeld = errors.New("store: call lock held")

// CallStore is the typed persistence layer over a KV backend.
type CallStore struct {
	kv KV
}

// NewCallStore wraps a KV backend.
func NewCallStore(kv KV) *CallStore {
	return &CallStore{kv: kv}
}

// SaveCallState persists the call state and indexes the call under its
// procurement request so all active calls can be resolved in two round
// trips (index read + batch fetch).
func (s *CallStore) SaveCallState(ctx context.Context, state models.CallState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal call state: %w", err)
	}
	if err := s.kv.Set(ctx, callKey(state.CallID), string(data), CallStateTTL); err != nil {
		return err
	}

	idx := requestCallsKey(state.QuoteRequestID)
	if err := s.kv.SAdd(ctx, idx, state.CallID); err != nil {
		return err
	}
	return s.kv.Expire(ctx, idx, CallStateTTL)
}

// GetCallState loads one call's state, or ErrNotFound.
func (s *CallStore) GetCallState(ctx context.Context, callID string) (models.CallState, error) {
	var state models.CallState
	data, err := s.kv.Get(ctx, callKey(callID))
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return state, fmt.Errorf("unmarshal call state %s: %w", callID, err)
	}
	return state, nil
}

// DeleteCallState removes a call's state and its index entry.
func (s *CallStore) DeleteCallState(ctx context.Context, state models.CallState) error {
	if err := s.kv.Delete(ctx, callKey(state.CallID)); err != nil {
		return err
	}
	return s.kv.SRem(ctx, requestCallsKey(state.QuoteRequestID), state.CallID)
}

// ActiveCallStates returns the call states currently indexed under a
// procurement request. Index entries whose state has expired are pruned
// lazily.
func (s *CallStore) ActiveCallStates(ctx context.Context, quoteRequestID string) ([]models.CallState, error) {
	idx := requestCallsKey(quoteRequestID)
	callIDs, err := s.kv.SMembers(ctx, idx)
	if err != nil {
		return nil, err
	}
	if len(callIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(callIDs))
	for i, id := range callIDs {
		keys[i] = callKey(id)
	}
	values, err := s.kv.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	var states []models.CallState
	var stale []string
	for i, data := range values {
		if data == "" {
			stale = append(stale, callIDs[i])
			continue
		}
		var state models.CallState
		if err := json.Unmarshal([]byte(data), &state); err != nil {
			log.Printf("[store] WARNING: dropping unreadable call state %s: %v", callIDs[i], err)
			stale = append(stale, callIDs[i])
			continue
		}
		states = append(states, state)
	}

	if len(stale) > 0 {
		if err := s.kv.SRem(ctx, idx, stale...); err != nil {
			log.Printf("[store] WARNING: pruning stale index entries for %s: %v", quoteRequestID, err)
		}
	}
	return states, nil
}

// AcquireCallLock takes the per-call processing mutex. Returns
// ErrLockHeld when another worker holds it.
func (s *CallStore) AcquireCallLock(ctx context.Context, callID string) error {
	ok, err := s.kv.SetNX(ctx, callLockKey(callID), "1", CallLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// ReleaseCallLock drops the per-call processing mutex. The short TTL
// covers a crashed holder.
func (s *CallStore) ReleaseCallLock(ctx context.Context, callID string) error {
	return s.kv.Delete(ctx, callLockKey(callID))
}

// SaveOverseerState persists supervisory state for a call.
func (s *CallStore) SaveOverseerState(ctx context.Context, state models.OverseerState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal overseer state: %w", err)
	}
	return s.kv.Set(ctx, overseerKey(state.CallID), string(data), OverseerStateTTL)
}

// GetOverseerState loads supervisory state, or ErrNotFound.
func (s *CallStore) GetOverseerState(ctx context.Context, callID string) (models.OverseerState, error) {
	var state models.OverseerState
	data, err := s.kv.Get(ctx, overseerKey(callID))
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return state, fmt.Errorf("unmarshal overseer state %s: %w", callID, err)
	}
	return state, nil
}

// SaveCommanderState persists cross-call state for a request.
func (s *CallStore) SaveCommanderState(ctx context.Context, state *models.CommanderState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal commander state: %w", err)
	}
	return s.kv.Set(ctx, commanderKey(state.QuoteRequestID), string(data), CommanderStateTTL)
}

// GetCommanderState loads cross-call state, or ErrNotFound.
func (s *CallStore) GetCommanderState(ctx context.Context, quoteRequestID string) (*models.CommanderState, error) {
	data, err := s.kv.Get(ctx, commanderKey(quoteRequestID))
	if err != nil {
		return nil, err
	}
	var state models.CommanderState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("unmarshal commander state %s: %w", quoteRequestID, err)
	}
	return &state, nil
}

// StageNudge stores a nudge in the call's single slot, overwriting any
// unconsumed one. A stale nudge is worthless, so last writer wins.
func (s *CallStore) StageNudge(ctx context.Context, callID string, nudge models.OverseerNudge) error {
	data, err := json.Marshal(nudge)
	if err != nil {
		return fmt.Errorf("marshal nudge: %w", err)
	}
	return s.kv.Set(ctx, nudgeKey(callID), string(data), NudgeTTL)
}

// ConsumeNudge atomically reads and clears the staged nudge. ok is
// false when no nudge is staged.
func (s *CallStore) ConsumeNudge(ctx context.Context, callID string) (models.OverseerNudge, bool, error) {
	var nudge models.OverseerNudge
	data, err := s.kv.GetDel(ctx, nudgeKey(callID))
	if errors.Is(err, ErrNotFound) {
		return nudge, false, nil
	}
	if err != nil {
		return nudge, false, err
	}
	if err := json.Unmarshal([]byte(data), &nudge); err != nil {
		return nudge, false, fmt.Errorf("unmarshal nudge %s: %w", callID, err)
	}
	return nudge, true, nil
}

// PushDirective appends a directive to the call's inbox and refreshes
// the inbox TTL, so one Commander pass can queue several directives
// without clobbering earlier ones.
func (s *CallStore) PushDirective(ctx context.Context, directive models.CommanderDirective) error {
	data, err := json.Marshal(directive)
	if err != nil {
		return fmt.Errorf("marshal directive: %w", err)
	}
	key := directivesKey(directive.TargetCallID)
	if err := s.kv.RPush(ctx, key, string(data)); err != nil {
		return err
	}
	return s.kv.Expire(ctx, key, DirectivesTTL)
}

// PeekDirectives reads the call's directive inbox without removing it,
// sorted by priority (escalate first).
func (s *CallStore) PeekDirectives(ctx context.Context, callID string) ([]models.CommanderDirective, error) {
	entries, err := s.kv.LRange(ctx, directivesKey(callID), 0, -1)
	if err != nil {
		return nil, err
	}

	var directives []models.CommanderDirective
	for _, entry := range entries {
		var d models.CommanderDirective
		if err := json.Unmarshal([]byte(entry), &d); err != nil {
			log.Printf("[store] WARNING: dropping unreadable directive for %s: %v", callID, err)
			continue
		}
		directives = append(directives, d)
	}

	sort.SliceStable(directives, func(i, j int) bool {
		return directives[i].DirectiveType.Priority() > directives[j].DirectiveType.Priority()
	})
	return directives, nil
}

// ConsumeDirectives clears the call's directive inbox. Call it only
// after the directives have been folded into an analysis; a crash
// before that point leaves them available for retry.
func (s *CallStore) ConsumeDirectives(ctx context.Context, callID string) error {
	return s.kv.Delete(ctx, directivesKey(callID))
}
