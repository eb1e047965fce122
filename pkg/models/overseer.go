package models

import "time"

// Phase is the supervisory stage of a single call. Phases only move
// forward: GATHER -> NEGOTIATE -> FINALIZE.
type Phase string

const (
	// PhaseGather covers the initial information-collection turns.
	PhaseGather Phase = "GATHER"
	// PhaseNegotiate covers active price negotiation.
	PhaseNegotiate Phase = "NEGOTIATE"
	// PhaseFinalize covers confirmation and wrap-up.
	PhaseFinalize Phase = "FINALIZE"
)

// rank orders phases for the monotonic-progression check.
func (p Phase) rank() int {
	switch p {
	case PhaseGather:
		return 0
	case PhaseNegotiate:
		return 1
	case PhaseFinalize:
		return 2
	default:
		return -1
	}
}

// CanAdvanceTo returns true if moving from p to next is a forward
// transition. Phases never roll back.
func (p Phase) CanAdvanceTo(next Phase) bool {
	return next.rank() > p.rank()
}

// InfoStatus tracks collection progress for a required datum.
type InfoStatus string

const (
	// InfoPending means the datum has not been collected.
	InfoPending InfoStatus = "pending"
	// InfoPartial means some but not all parts are covered.
	InfoPartial InfoStatus = "partial"
	// InfoCollected means the datum is fully collected.
	InfoCollected InfoStatus = "collected"
	// InfoNotApplicable means the datum does not apply to this call.
	InfoNotApplicable InfoStatus = "not_applicable"
)

// AskStatus tracks the supplier-question lifecycle for a datum the
// supplier may need from us.
type AskStatus string

const (
	// AskNotAsked means the supplier has not raised the question.
	AskNotAsked AskStatus = "not_asked"
	// AskAsked means the supplier asked and we have not answered.
	AskAsked AskStatus = "asked"
	// AskAnswered means we answered the supplier's question.
	AskAnswered AskStatus = "answered"
)

// InfoWeNeed tracks what the agent still has to collect.
type InfoWeNeed struct {
	UnitPrices        InfoStatus `json:"unit_prices"`
	LeadTime          InfoStatus `json:"lead_time"`
	StockStatus       InfoStatus `json:"stock_status"`
	AllPartsAddressed bool       `json:"all_parts_addressed"`
}

// InfoTheyWant tracks what the supplier has asked of us.
type InfoTheyWant struct {
	Quantity      AskStatus `json:"quantity"`
	CompanyName   AskStatus `json:"company_name"`
	AccountNumber AskStatus `json:"account_number"`
}

// MaxFlaggedIssues bounds the flagged-issue history kept per call.
const MaxFlaggedIssues = 20

// OverseerState is the supervisory metadata layered above one call.
type OverseerState struct {
	// CallID identifies the supervised call.
	CallID string `json:"call_id"`
	// Phase is the current supervisory stage.
	Phase Phase `json:"phase"`
	// LastAnalyzedTurn marks the most recent reviewed supplier turn.
	LastAnalyzedTurn int `json:"last_analyzed_turn"`
	// InfoWeNeed tracks collection progress.
	InfoWeNeed InfoWeNeed `json:"info_we_need"`
	// InfoTheyWant tracks supplier questions.
	InfoTheyWant InfoTheyWant `json:"info_they_want"`
	// NegotiationNotes accumulates free-text analysis notes.
	NegotiationNotes []string `json:"negotiation_notes,omitempty"`
	// FlaggedIssues keeps the most recent MaxFlaggedIssues issues.
	FlaggedIssues []string `json:"flagged_issues,omitempty"`
}

// NewOverseerState returns the initial supervisory state for a call.
func NewOverseerState(callID string) OverseerState {
	return OverseerState{
		CallID:           callID,
		Phase:            PhaseGather,
		LastAnalyzedTurn: 0,
		InfoWeNeed: InfoWeNeed{
			UnitPrices:  InfoPending,
			LeadTime:    InfoPending,
			StockStatus: InfoPending,
		},
		InfoTheyWant: InfoTheyWant{
			Quantity:      AskNotAsked,
			CompanyName:   AskNotAsked,
			AccountNumber: AskNotAsked,
		},
	}
}

// FlagIssue returns a copy of s with issue appended, keeping only the
// most recent MaxFlaggedIssues entries.
func (s OverseerState) FlagIssue(issue string) OverseerState {
	issues := make([]string, len(s.FlaggedIssues), len(s.FlaggedIssues)+1)
	copy(issues, s.FlaggedIssues)
	issues = append(issues, issue)
	if len(issues) > MaxFlaggedIssues {
		issues = issues[len(issues)-MaxFlaggedIssues:]
	}
	s.FlaggedIssues = issues
	return s
}

// NudgePriority orders coaching nudges.
type NudgePriority string

const (
	// NudgeP0 must be acted on in the next agent utterance.
	NudgeP0 NudgePriority = "P0"
	// NudgeP1 should be worked in soon.
	NudgeP1 NudgePriority = "P1"
	// NudgeP2 is advisory.
	NudgeP2 NudgePriority = "P2"
)

// NudgeSource identifies who staged a nudge.
type NudgeSource string

const (
	// NudgeFromOverseer marks a per-call supervisory nudge.
	NudgeFromOverseer NudgeSource = "overseer"
	// NudgeFromCommander marks a cross-call directive folded into a nudge.
	NudgeFromCommander NudgeSource = "commander"
)

// OverseerNudge is a short-lived coaching instruction for the next turn.
// A call holds at most one staged nudge; staging overwrites, and a nudge
// is consumed at most once.
type OverseerNudge struct {
	Priority NudgePriority `json:"priority"`
	Text     string        `json:"text"`
	// TurnNumber is the supplier turn the nudge targets.
	TurnNumber int         `json:"turn_number"`
	Phase      Phase       `json:"phase"`
	Timestamp  time.Time   `json:"timestamp"`
	Source     NudgeSource `json:"source"`
	// PhaseTransition names the transition that produced the nudge, if any
	// (e.g. "GATHER->NEGOTIATE").
	PhaseTransition string `json:"phase_transition,omitempty"`
}

// EventType classifies facts pushed toward the Commander.
type EventType string

const (
	// EventQuoteReceived fires when a priced quote was extracted.
	EventQuoteReceived EventType = "quote_received"
	// EventQuoteRejected fires when the supplier declined to quote.
	EventQuoteRejected EventType = "quote_rejected"
	// EventNegotiationStalled fires when negotiation stops progressing.
	EventNegotiationStalled EventType = "negotiation_stalled"
	// EventTransferInProgress fires when a call is being transferred.
	EventTransferInProgress EventType = "transfer_in_progress"
	// EventSupplierWantsCallback fires when the supplier deferred.
	EventSupplierWantsCallback EventType = "supplier_wants_callback"
	// EventCallEnded fires when a call reached a terminal status.
	EventCallEnded EventType = "call_ended"
	// EventErrorDetected fires when supervision spotted a problem.
	EventErrorDetected EventType = "error_detected"
)

// OverseerEvent is an immutable fact emitted toward the Commander.
type OverseerEvent struct {
	CallID         string    `json:"call_id"`
	QuoteRequestID string    `json:"quote_request_id"`
	SupplierID     string    `json:"supplier_id,omitempty"`
	SupplierName   string    `json:"supplier_name"`
	EventType      EventType `json:"event_type"`
	Timestamp      time.Time `json:"timestamp"`
	// TurnNumber is the supplier turn that produced the event; with the
	// call ID it forms the at-least-once delivery key.
	TurnNumber int            `json:"turn_number"`
	Data       map[string]any `json:"data,omitempty"`
}
