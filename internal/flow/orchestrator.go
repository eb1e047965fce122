package flow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/quotecall/quotecall/internal/llm"
	"github.com/quotecall/quotecall/internal/store"
	"github.com/quotecall/quotecall/pkg/models"
)

// Reviewer is the asynchronous supervisor notified after each turn.
// Its only channels back into the call are the staged nudge and the
// event queue, never a return value.
type Reviewer interface {
	Review(ctx context.Context, state models.CallState)
}

// TurnResult is what the turn trigger gets back.
type TurnResult struct {
	// Reply is the agent's next utterance, empty for silent turns.
	Reply string `json:"reply"`
	// Status is the call status after the turn.
	Status models.CallStatus `json:"status"`
	// Node is the state-machine position after the turn.
	Node string `json:"node"`
}

// Orchestrator executes call turns: it serializes per-call processing
// with the store's lock, runs routing and node execution, persists the
// new state, and dispatches supervision without blocking the response.
type Orchestrator struct {
	router   *Router
	llm      llm.Service
	store    *store.CallStore
	reviewer Reviewer

	// dispatch runs the supervisory pass; swapped for a synchronous
	// variant in tests.
	dispatch func(f func())
}

// NewOrchestrator wires the turn pipeline. reviewer may be nil to run
// without supervision.
func NewOrchestrator(svc llm.Service, cs *store.CallStore, reviewer Reviewer) *Orchestrator {
	return &Orchestrator{
		router:   NewRouter(svc),
		llm:      svc,
		store:    cs,
		reviewer: reviewer,
		dispatch: func(f func()) { go f() },
	}
}

// InitParams describes a new call to place.
type InitParams struct {
	CallID           string
	QuoteRequestID   string
	QuoteReference   string
	SupplierID       string
	SupplierName     string
	SupplierPhone    string
	OrganizationID   string
	OrganizationName string
	CallerID         string
	Parts            []models.Part
	Context          string
}

// InitializeCallState creates and persists the state for a new call,
// positioned at the greeting node.
func (o *Orchestrator) InitializeCallState(ctx context.Context, p InitParams) (models.CallState, error) {
	if len(p.Parts) == 0 {
		return models.CallState{}, fmt.Errorf("initialize call: no parts to quote")
	}
	callID := p.CallID
	if callID == "" {
		callID = uuid.NewString()
	}

	state := models.CallState{
		CallID:           callID,
		QuoteRequestID:   p.QuoteRequestID,
		QuoteReference:   p.QuoteReference,
		SupplierID:       p.SupplierID,
		SupplierName:     p.SupplierName,
		SupplierPhone:    p.SupplierPhone,
		OrganizationID:   p.OrganizationID,
		OrganizationName: p.OrganizationName,
		CallerID:         p.CallerID,
		Parts:            p.Parts,
		Context:          p.Context,
		CurrentNode:      string(NodeGreeting),
		Status:           models.CallInProgress,
		CreatedAt:        time.Now().UTC(),
	}
	if err := o.store.SaveCallState(ctx, state); err != nil {
		return models.CallState{}, err
	}
	return state, nil
}

// StartCall produces the agent's opening line for a freshly
// initialized call.
func (o *Orchestrator) StartCall(ctx context.Context, callID string) (TurnResult, error) {
	if err := o.store.AcquireCallLock(ctx, callID); err != nil {
		return TurnResult{}, err
	}
	defer o.releaseLock(callID)

	state, err := o.store.GetCallState(ctx, callID)
	if err != nil {
		return TurnResult{}, err
	}

	state, err = Execute(ctx, &Deps{LLM: o.llm}, NodeGreeting, state)
	if err != nil {
		return TurnResult{}, err
	}
	if err := o.store.SaveCallState(ctx, state); err != nil {
		return TurnResult{}, err
	}
	return result(state, len(state.ConversationHistory)-1), nil
}

// ProcessTurn handles one supplier utterance and returns the agent's
// reply. Processing is serialized per call: a held lock surfaces as
// store.ErrLockHeld and means the turn should be deferred, not that
// anything failed.
func (o *Orchestrator) ProcessTurn(ctx context.Context, callID, utterance string) (TurnResult, error) {
	if err := o.store.AcquireCallLock(ctx, callID); err != nil {
		return TurnResult{}, err
	}
	defer o.releaseLock(callID)

	state, err := o.store.GetCallState(ctx, callID)
	if err != nil {
		return TurnResult{}, err
	}

	// Terminal calls never speak again; the turn is a no-op.
	if state.Status.Terminal() {
		return TurnResult{Status: state.Status, Node: state.CurrentNode}, nil
	}

	// Supervision from the previous turn, if any, lands here.
	nudge, hasNudge, err := o.store.ConsumeNudge(ctx, callID)
	if err != nil {
		log.Printf("[flow] WARNING: consuming nudge for %s: %v", callID, err)
		hasNudge = false
	}

	state = state.AppendMessage(models.SpeakerSupplier, utterance)

	state, next := o.router.Route(ctx, state, utterance)

	deps := &Deps{LLM: o.llm}
	if hasNudge {
		deps.Nudge = &nudge
	}
	before := len(state.ConversationHistory)
	state, err = Execute(ctx, deps, next, state)
	if err != nil {
		return TurnResult{}, fmt.Errorf("execute node %s: %w", next, err)
	}

	if err := o.store.SaveCallState(ctx, state); err != nil {
		return TurnResult{}, err
	}

	// Fire-and-forget supervision. Its output is only visible to the
	// next turn, so it can safely race this call's future processing.
	if o.reviewer != nil {
		snapshot := state
		o.dispatch(func() {
			o.reviewer.Review(context.Background(), snapshot)
		})
	}

	return result(state, before), nil
}

// result pulls the agent's reply out of any messages appended at or
// after index from.
func result(state models.CallState, from int) TurnResult {
	res := TurnResult{Status: state.Status, Node: state.CurrentNode}
	for i := from; i < len(state.ConversationHistory); i++ {
		if i >= 0 && state.ConversationHistory[i].Speaker == models.SpeakerAI {
			res.Reply = state.ConversationHistory[i].Text
		}
	}
	return res
}

func (o *Orchestrator) releaseLock(callID string) {
	if err := o.store.ReleaseCallLock(context.Background(), callID); err != nil {
		log.Printf("[flow] WARNING: releasing lock for %s: %v", callID, err)
	}
}
