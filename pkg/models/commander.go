package models

import "time"

// TargetPriceRatio is the negotiation target as a fraction of the
// buyer's budget ceiling.
const TargetPriceRatio = 0.85

// BestQuote is the best-known terms for one part across all calls of a
// procurement request. Fields only improve; worse data never regresses
// an existing value.
type BestQuote struct {
	// BestPrice is the lowest per-unit price seen, nil until one arrives.
	BestPrice *float64 `json:"best_price,omitempty"`
	// BestSupplier names the supplier behind BestPrice.
	BestSupplier string `json:"best_supplier,omitempty"`
	// BestLeadTimeDays is the shortest lead time seen, nil until one arrives.
	BestLeadTimeDays *int `json:"best_lead_time_days,omitempty"`
	// BestLeadTimeSupplier names the supplier behind BestLeadTimeDays.
	BestLeadTimeSupplier string `json:"best_lead_time_supplier,omitempty"`
	// QuotesReceived counts priced quotes seen for this part.
	QuotesReceived int `json:"quotes_received"`
}

// ActiveCallStatus is the Commander's view of one call's liveness.
type ActiveCallStatus string

const (
	// ActiveCallActive means the call is still in progress.
	ActiveCallActive ActiveCallStatus = "active"
	// ActiveCallEnded means the call reached a terminal status.
	ActiveCallEnded ActiveCallStatus = "ended"
)

// ActiveCall mirrors the liveness and phase of one call.
type ActiveCall struct {
	SupplierID   string           `json:"supplier_id"`
	SupplierName string           `json:"supplier_name"`
	Status       ActiveCallStatus `json:"status"`
	Phase        Phase            `json:"phase,omitempty"`
}

// PartBudget is the buyer's price posture for one part.
type PartBudget struct {
	// BudgetCeiling is the hard per-unit maximum.
	BudgetCeiling float64 `json:"budget_ceiling"`
	// TargetPrice is the negotiation target, TargetPriceRatio of the ceiling.
	TargetPrice float64 `json:"target_price"`
}

// NewPartBudget derives a budget entry from a ceiling.
func NewPartBudget(ceiling float64) PartBudget {
	return PartBudget{
		BudgetCeiling: ceiling,
		TargetPrice:   ceiling * TargetPriceRatio,
	}
}

// CommanderState aggregates every call made for one procurement request.
type CommanderState struct {
	// QuoteRequestID identifies the procurement request.
	QuoteRequestID string `json:"quote_request_id"`
	// BestQuotes is keyed by part number.
	BestQuotes map[string]*BestQuote `json:"best_quotes"`
	// ActiveCalls is keyed by call ID.
	ActiveCalls map[string]*ActiveCall `json:"active_calls"`
	// Budgets is keyed by part number.
	Budgets map[string]PartBudget `json:"budgets"`
	// EventsProcessed counts events folded into this state.
	EventsProcessed int `json:"events_processed"`
	// LastEventTimestamp is when the most recent event was folded in.
	LastEventTimestamp time.Time `json:"last_event_timestamp"`
}

// NewCommanderState returns empty aggregation state for a request.
func NewCommanderState(quoteRequestID string) *CommanderState {
	return &CommanderState{
		QuoteRequestID: quoteRequestID,
		BestQuotes:     make(map[string]*BestQuote),
		ActiveCalls:    make(map[string]*ActiveCall),
		Budgets:        make(map[string]PartBudget),
	}
}

// DirectiveType classifies Commander instructions to individual calls.
type DirectiveType string

const (
	// DirectiveLeverageUpdate shares a competing price as leverage.
	DirectiveLeverageUpdate DirectiveType = "leverage_update"
	// DirectiveDeprioritize tells a call it is unlikely to win.
	DirectiveDeprioritize DirectiveType = "deprioritize"
	// DirectiveWrapUp tells a call to close out quickly.
	DirectiveWrapUp DirectiveType = "wrap_up"
	// DirectiveEscalate requests human attention on a call.
	DirectiveEscalate DirectiveType = "escalate"
	// DirectiveAward marks a call's supplier as the winner.
	DirectiveAward DirectiveType = "award"
)

// Priority orders directive consumption; higher values are consumed
// first (escalate > wrap_up > award > leverage_update > deprioritize).
func (t DirectiveType) Priority() int {
	switch t {
	case DirectiveEscalate:
		return 4
	case DirectiveWrapUp:
		return 3
	case DirectiveAward:
		return 2
	case DirectiveLeverageUpdate:
		return 1
	case DirectiveDeprioritize:
		return 0
	default:
		return -1
	}
}

// CommanderDirective is an instruction staged into one call's inbox.
type CommanderDirective struct {
	DirectiveType DirectiveType `json:"directive_type"`
	TargetCallID  string        `json:"target_call_id"`
	Message       string        `json:"message"`
	Timestamp     time.Time     `json:"timestamp"`
}
