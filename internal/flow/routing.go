package flow

import (
	"context"
	"strings"

	"github.com/quotecall/quotecall/internal/heuristics"
	"github.com/quotecall/quotecall/internal/llm"
	"github.com/quotecall/quotecall/pkg/models"
)

// Intent labels used by greeting-stage classification. The first label
// is the fail-open default.
const (
	IntentAffirmative = "affirmative"
	IntentTransfer    = "transfer"
	IntentVoicemail   = "voicemail"
	IntentNegative    = "negative"
)

var greetingIntents = []string{IntentAffirmative, IntentTransfer, IntentVoicemail, IntentNegative}

// Router computes the next node from the latest supplier utterance and
// the current state. Quote extraction happens here, so routing may
// append quotes before handing the updated state to the next node.
type Router struct {
	llm llm.Service
}

// NewRouter builds a Router over the given model service.
func NewRouter(svc llm.Service) *Router {
	return &Router{llm: svc}
}

// Route dispatches on the current node. Bot-screening detection is a
// cheap pattern match and short-circuits every LLM path.
func (r *Router) Route(ctx context.Context, state models.CallState, utterance string) (models.CallState, Node) {
	if _, ok := heuristics.DetectBotScreening(utterance); ok {
		return state, NodeBotScreening
	}

	switch Node(state.CurrentNode) {
	case NodeGreeting, "":
		return state, r.routeFromGreeting(ctx, utterance)
	case NodeQuoteRequest, NodeClarification:
		return r.routeFromQuoteRequest(ctx, state, utterance)
	case NodePriceExtract:
		return r.routeFromPriceExtract(ctx, state, utterance)
	case NodeNegotiate:
		return r.routeFromNegotiate(ctx, state, utterance)
	case NodeConversational:
		return r.routeFromConversational(ctx, state, utterance)
	case NodeTransfer:
		// The transfer completed and someone new is on the line.
		return state, r.routeFromGreeting(ctx, utterance)
	case NodeBotScreening:
		// Screening passed; treat the new utterance as a fresh greeting.
		return state, r.routeFromGreeting(ctx, utterance)
	case NodeMiscCosts:
		return r.routeFromMiscCosts(state, utterance)
	default:
		return state, NodeEnd
	}
}

func (r *Router) routeFromGreeting(ctx context.Context, utterance string) Node {
	switch heuristics.ClassifyIntent(ctx, r.llm, utterance, greetingIntents) {
	case IntentTransfer:
		return NodeTransfer
	case IntentVoicemail:
		return NodeVoicemail
	case IntentNegative:
		return NodePoliteEnd
	default:
		return NodeQuoteRequest
	}
}

// routeFromQuoteRequest encodes the quote_request precedence rules:
// callback > repeat > verification question > extracted pricing >
// generic question > keep requesting.
func (r *Router) routeFromQuoteRequest(ctx context.Context, state models.CallState, utterance string) (models.CallState, Node) {
	if heuristics.IsCallbackRequest(utterance) {
		return state, NodeCallback
	}
	if heuristics.IsRepeatRequest(utterance) {
		// Re-entering quote_request triggers the phonetic spelling.
		return state, NodeQuoteRequest
	}
	if heuristics.IsVerificationQuestion(utterance) {
		// A fitment question deserves an answer, not a deflection.
		return state, NodeConversational
	}

	state, extracted := r.extractInto(ctx, state, utterance)
	if extracted {
		if r.needsNegotiation(state) {
			return state, NodeNegotiate
		}
		if heuristics.HasPricingForAllParts(state.Parts, state.Quotes) {
			return state, routeAfterPricing(state)
		}
		return state, NodePriceExtract
	}

	if isGenericQuestion(utterance) {
		if state.ClarificationAttempts < MaxClarificationAttempts {
			return state, NodeClarification
		}
		return state, NodeEscalation
	}
	return state, NodeQuoteRequest
}

func (r *Router) routeFromPriceExtract(ctx context.Context, state models.CallState, utterance string) (models.CallState, Node) {
	state, _ = r.extractInto(ctx, state, utterance)

	if r.needsNegotiation(state) {
		return state, NodeNegotiate
	}
	if heuristics.HasPricingForAllParts(state.Parts, state.Quotes) {
		return state, routeAfterPricing(state)
	}
	return state, NodeQuoteRequest
}

// routeFromNegotiate loops until the supplier refuses, moves, or the
// attempt budget runs out.
func (r *Router) routeFromNegotiate(ctx context.Context, state models.CallState, utterance string) (models.CallState, Node) {
	before := lowestPrices(state)
	state, _ = r.extractInto(ctx, state, utterance)

	if heuristics.IsRefusal(utterance) || state.NegotiationAttempts >= MaxNegotiationAttempts {
		return state, routeAfterPricing(state)
	}
	if pricesImproved(before, lowestPrices(state)) {
		return state, routeAfterPricing(state)
	}
	return state, NodeNegotiate
}

// routeFromConversational keeps free conversation from stalling the
// call: wrap-up and pricing exits come first, then gentle returns to
// the script.
func (r *Router) routeFromConversational(ctx context.Context, state models.CallState, utterance string) (models.CallState, Node) {
	if heuristics.IsWrapUpPhrase(utterance) {
		return state, NodePoliteEnd
	}
	if heuristics.HasPricingForAllParts(state.Parts, state.Quotes) {
		return state, routeAfterPricing(state)
	}

	state, extracted := r.extractInto(ctx, state, utterance)
	if extracted {
		return state, NodePriceExtract
	}

	if state.SupplierTurns() <= 3 && len(state.Quotes) == 0 {
		return state, NodeQuoteRequest
	}
	if heuristics.MentionsSubstitute(utterance) {
		return state, NodeConversational
	}
	if heuristics.IsRepeatRequest(utterance) {
		return state, NodeQuoteRequest
	}
	if heuristics.SoundsConfused(utterance) && state.ClarificationAttempts < MaxClarificationAttempts {
		return state, NodeClarification
	}
	return state, NodeConversational
}

func (r *Router) routeFromMiscCosts(state models.CallState, utterance string) (models.CallState, Node) {
	if heuristics.ContainsPricingLanguage(utterance) {
		state.HasMiscCosts = true
	}
	return state, NodeConfirmation
}

// routeAfterPricing is the pricing-completion branch: ask about misc
// costs once when shipment-dependent parts exist, otherwise confirm.
func routeAfterPricing(state models.CallState) Node {
	if heuristics.HasShipmentDependentParts(state.Quotes) && !state.MiscCostsAsked {
		return NodeMiscCosts
	}
	return NodeConfirmation
}

// extractInto runs pricing extraction over the utterance and appends
// any quotes found. extracted reports whether at least one priced
// quote arrived in this pass.
func (r *Router) extractInto(ctx context.Context, state models.CallState, utterance string) (models.CallState, bool) {
	if !heuristics.ContainsPricingLanguage(utterance) && !heuristics.MentionsSubstitute(utterance) {
		return state, false
	}
	quotes := heuristics.ExtractQuotes(ctx, r.llm, utterance, state.Parts, state.RecentHistory(4))
	if len(quotes) == 0 {
		return state, false
	}
	state = state.AppendQuotes(quotes...)

	for _, q := range quotes {
		if q.Price != nil {
			return state, true
		}
	}
	return state, false
}

// needsNegotiation reports whether a quoted price exceeds its part's
// budget ceiling and negotiation attempts remain.
func (r *Router) needsNegotiation(state models.CallState) bool {
	if state.NegotiationAttempts >= MaxNegotiationAttempts {
		return false
	}
	part, _, _ := negotiationTarget(state)
	return part != nil
}

// lowestPrices maps each part to its lowest quoted price.
func lowestPrices(state models.CallState) map[string]float64 {
	out := make(map[string]float64)
	for _, part := range state.Parts {
		if q, ok := bestQuoteFor(part.PartNumber, state.Quotes); ok {
			out[part.PartNumber] = *q.Price
		}
	}
	return out
}

// pricesImproved reports whether any part's lowest price dropped.
func pricesImproved(before, after map[string]float64) bool {
	for part, price := range after {
		prev, ok := before[part]
		if ok && price < prev {
			return true
		}
	}
	return false
}

func isGenericQuestion(utterance string) bool {
	return strings.Contains(utterance, "?") || heuristics.SoundsConfused(utterance)
}
