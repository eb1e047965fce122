// Package models defines the shared domain types for QuoteCall.
package models

import "time"

// Speaker identifies who produced a conversation message.
type Speaker string

const (
	// SpeakerAI is the automated call agent.
	SpeakerAI Speaker = "ai"
	// SpeakerSupplier is the human (or machine) on the supplier side.
	SpeakerSupplier Speaker = "supplier"
	// SpeakerSystem is an internal bookkeeping entry.
	SpeakerSystem Speaker = "system"
)

// Message is a single entry in a call's conversation history.
type Message struct {
	// Speaker is who said it.
	Speaker Speaker `json:"speaker"`
	// Text is the utterance text.
	Text string `json:"text"`
	// Timestamp is when the message was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// CallStatus represents the lifecycle state of a call.
type CallStatus string

const (
	// CallInProgress indicates the call is active.
	CallInProgress CallStatus = "in_progress"
	// CallCompleted indicates the call finished normally.
	CallCompleted CallStatus = "completed"
	// CallFailed indicates the call ended without a usable outcome.
	CallFailed CallStatus = "failed"
	// CallNeedsCallback indicates the supplier asked to be called back.
	CallNeedsCallback CallStatus = "needs_callback"
	// CallEscalated indicates the call was handed to a human.
	CallEscalated CallStatus = "escalated"
)

// Terminal returns true if no further node execution may occur.
// needs_callback is resumable and therefore not terminal.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallCompleted, CallFailed, CallEscalated:
		return true
	default:
		return false
	}
}

// Valid returns true if the status is a known value.
func (s CallStatus) Valid() bool {
	switch s {
	case CallInProgress, CallCompleted, CallFailed, CallNeedsCallback, CallEscalated:
		return true
	default:
		return false
	}
}

// Availability represents a supplier's stock position for a part.
type Availability string

const (
	// AvailabilityInStock means the part ships now.
	AvailabilityInStock Availability = "in_stock"
	// AvailabilityBackorder means the part ships after a lead time.
	AvailabilityBackorder Availability = "backorder"
	// AvailabilityUnavailable means the supplier cannot source the part.
	AvailabilityUnavailable Availability = "unavailable"
)

// Part is one line item the agent is calling about.
type Part struct {
	// PartNumber is the requested manufacturer part number.
	PartNumber string `json:"part_number"`
	// Description is the human-readable part description.
	Description string `json:"description"`
	// Quantity is the number of units requested.
	Quantity int `json:"quantity"`
	// BudgetMax is the per-unit ceiling, if the buyer set one.
	BudgetMax *float64 `json:"budget_max,omitempty"`
}

// ExtractedQuote is a structured quote pulled from supplier speech.
// Quotes are append-only: corrections arrive as additional entries and are
// reconciled at read time.
type ExtractedQuote struct {
	// PartNumber is the quoted part, possibly a substitute.
	PartNumber string `json:"part_number"`
	// Price is the quoted per-unit price, nil if not stated.
	Price *float64 `json:"price,omitempty"`
	// Availability is the stated stock position.
	Availability Availability `json:"availability"`
	// LeadTimeDays is the stated lead time, nil if not stated.
	LeadTimeDays *int `json:"lead_time_days,omitempty"`
	// Notes carries any qualifier the supplier attached.
	Notes string `json:"notes,omitempty"`
	// IsSubstitute is true when the supplier offered an alternative part.
	IsSubstitute bool `json:"is_substitute,omitempty"`
	// OriginalPartNumber links a substitute back to the requested part.
	OriginalPartNumber string `json:"original_part_number,omitempty"`
}

// CallState owns the full conversation for one supplier contact.
type CallState struct {
	// CallID uniquely identifies this call.
	CallID string `json:"call_id"`
	// QuoteRequestID groups calls made for one procurement request.
	QuoteRequestID string `json:"quote_request_id"`
	// QuoteReference is the buyer-facing reference given to the supplier.
	QuoteReference string `json:"quote_reference,omitempty"`
	// SupplierID identifies the supplier being called.
	SupplierID string `json:"supplier_id"`
	// SupplierName is the supplier's display name.
	SupplierName string `json:"supplier_name"`
	// SupplierPhone is the dialed number.
	SupplierPhone string `json:"supplier_phone,omitempty"`
	// OrganizationID identifies the buying organization.
	OrganizationID string `json:"organization_id"`
	// OrganizationName is spoken during the greeting.
	OrganizationName string `json:"organization_name"`
	// CallerID is the outbound number presented to the supplier.
	CallerID string `json:"caller_id,omitempty"`

	// Parts are the line items to price on this call.
	Parts []Part `json:"parts"`
	// Context is optional free-text buyer instructions.
	Context string `json:"context,omitempty"`

	// CurrentNode is the state-machine position.
	CurrentNode string `json:"current_node"`
	// ConversationHistory is the ordered, append-only transcript.
	ConversationHistory []Message `json:"conversation_history"`
	// Quotes are the extracted quotes, append-only.
	Quotes []ExtractedQuote `json:"quotes"`

	// NegotiationAttempts counts negotiate-node passes.
	NegotiationAttempts int `json:"negotiation_attempts"`
	// ClarificationAttempts counts clarification-node passes.
	ClarificationAttempts int `json:"clarification_attempts"`
	// BotScreeningAttempts counts bot-screening challenges answered.
	BotScreeningAttempts int `json:"bot_screening_attempts"`
	// PartNumbersGiven counts how many part numbers have been spelled out.
	PartNumbersGiven int `json:"part_numbers_given"`
	// DescriptionsGiven is set once the opening description-only request
	// has been made. Part numbers are never revealed before it.
	DescriptionsGiven bool `json:"descriptions_given,omitempty"`

	// NeedsTransfer is set when the supplier is transferring the agent.
	NeedsTransfer bool `json:"needs_transfer,omitempty"`
	// NeedsHumanEscalation is set when a human must take over.
	NeedsHumanEscalation bool `json:"needs_human_escalation,omitempty"`
	// BotScreeningDetected is set when a screening system was identified.
	BotScreeningDetected bool `json:"bot_screening_detected,omitempty"`
	// HasMiscCosts is set when shipping or other costs apply.
	HasMiscCosts bool `json:"has_misc_costs,omitempty"`
	// MiscCostsAsked is set once the misc-costs question has been posed.
	MiscCostsAsked bool `json:"misc_costs_asked,omitempty"`

	// Status is the call lifecycle state.
	Status CallStatus `json:"status"`
	// Outcome is a short free-text result summary.
	Outcome string `json:"outcome,omitempty"`
	// NextAction records follow-up work for the buyer, if any.
	NextAction string `json:"next_action,omitempty"`

	// CreatedAt is when the call state was initialized.
	CreatedAt time.Time `json:"created_at"`
}

// AppendMessage returns a copy of s with msg appended to the history.
// CallState values are never mutated in place once shared; every
// transition produces a new value.
func (s CallState) AppendMessage(speaker Speaker, text string) CallState {
	history := make([]Message, len(s.ConversationHistory), len(s.ConversationHistory)+1)
	copy(history, s.ConversationHistory)
	s.ConversationHistory = append(history, Message{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
	return s
}

// AppendQuotes returns a copy of s with the given quotes appended.
func (s CallState) AppendQuotes(quotes ...ExtractedQuote) CallState {
	if len(quotes) == 0 {
		return s
	}
	existing := make([]ExtractedQuote, len(s.Quotes), len(s.Quotes)+len(quotes))
	copy(existing, s.Quotes)
	s.Quotes = append(existing, quotes...)
	return s
}

// LastSupplierMessage returns the most recent supplier utterance, or ""
// if the supplier has not spoken yet.
func (s CallState) LastSupplierMessage() string {
	for i := len(s.ConversationHistory) - 1; i >= 0; i-- {
		if s.ConversationHistory[i].Speaker == SpeakerSupplier {
			return s.ConversationHistory[i].Text
		}
	}
	return ""
}

// SupplierTurns counts how many times the supplier has spoken.
func (s CallState) SupplierTurns() int {
	n := 0
	for _, m := range s.ConversationHistory {
		if m.Speaker == SpeakerSupplier {
			n++
		}
	}
	return n
}

// RecentHistory returns up to the last n messages.
func (s CallState) RecentHistory(n int) []Message {
	if n <= 0 || len(s.ConversationHistory) == 0 {
		return nil
	}
	if len(s.ConversationHistory) <= n {
		return s.ConversationHistory
	}
	return s.ConversationHistory[len(s.ConversationHistory)-n:]
}

// PartByNumber returns the requested part with the given number.
func (s CallState) PartByNumber(pn string) (Part, bool) {
	for _, p := range s.Parts {
		if p.PartNumber == pn {
			return p, true
		}
	}
	return Part{}, false
}
