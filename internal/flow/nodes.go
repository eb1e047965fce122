// Package flow implements the per-call conversation state machine: the
// nodes that decide what the agent says next, the routing rules that
// move between them, and the turn orchestrator that binds them to the
// shared store and the Overseer.
package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/quotecall/quotecall/internal/heuristics"
	"github.com/quotecall/quotecall/internal/llm"
	"github.com/quotecall/quotecall/pkg/models"
)

// Node names a state in the conversation state machine.
type Node string

const (
	NodeGreeting       Node = "greeting"
	NodeQuoteRequest   Node = "quote_request"
	NodePriceExtract   Node = "price_extract"
	NodeNegotiate      Node = "negotiate"
	NodeConfirmation   Node = "confirmation"
	NodeVoicemail      Node = "voicemail"
	NodeTransfer       Node = "transfer"
	NodeEscalation     Node = "human_escalation"
	NodeClarification  Node = "clarification"
	NodeCallback       Node = "callback"
	NodePoliteEnd      Node = "polite_end"
	NodeBotScreening   Node = "bot_screening"
	NodeMiscCosts      Node = "misc_costs_inquiry"
	NodeConversational Node = "conversational_response"
	NodeEnd            Node = "end"
)

// Attempt ceilings before the machine changes strategy.
const (
	MaxNegotiationAttempts   = 2
	MaxClarificationAttempts = 2
	MaxBotScreeningAttempts  = 3
)

// Deps are the collaborators node handlers draw on.
type Deps struct {
	LLM llm.Service
	// Nudge is the coaching instruction consumed for this turn, if any.
	Nudge *models.OverseerNudge
}

// handler executes one node: it returns a new state with at most one
// agent message appended. Handlers never mutate their input.
type handler func(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error)

// handlers dispatches node execution. NodeEnd is absent: it appends
// nothing and is handled by Execute directly.
var handlers = map[Node]handler{
	NodeGreeting:       runGreeting,
	NodeQuoteRequest:   runQuoteRequest,
	NodePriceExtract:   runPriceExtract,
	NodeNegotiate:      runNegotiate,
	NodeConfirmation:   runConfirmation,
	NodeVoicemail:      runVoicemail,
	NodeTransfer:       runTransfer,
	NodeEscalation:     runEscalation,
	NodeClarification:  runClarification,
	NodeCallback:       runCallback,
	NodePoliteEnd:      runPoliteEnd,
	NodeBotScreening:   runBotScreening,
	NodeMiscCosts:      runMiscCosts,
	NodeConversational: runConversational,
}

// Execute runs a node handler. Terminal call states are a no-op
// returning unchanged state: a completed call never speaks again.
func Execute(ctx context.Context, deps *Deps, node Node, state models.CallState) (models.CallState, error) {
	if state.Status.Terminal() {
		return state, nil
	}
	h, ok := handlers[node]
	if !ok {
		return state, nil
	}
	state.CurrentNode = string(node)
	return h(ctx, deps, state)
}

func runGreeting(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	text := fmt.Sprintf(
		"Hi, I'm calling from %s. I'm looking to get pricing on a few parts — am I through to the parts department?",
		state.OrganizationName)
	if len(state.Parts) == 1 {
		text = fmt.Sprintf(
			"Hi, I'm calling from %s. I'm looking to get pricing on a part — am I through to the parts department?",
			state.OrganizationName)
	}
	return state.AppendMessage(models.SpeakerAI, text), nil
}

// runQuoteRequest follows the strict reveal order: the first pass
// states part descriptions only, later passes give one part number per
// turn spelled into letter/digit segments, with a recap once all are
// out. A repeat request switches the part in play to NATO phonetics.
func runQuoteRequest(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	if !state.DescriptionsGiven {
		state.DescriptionsGiven = true
		return state.AppendMessage(models.SpeakerAI, describeParts(state.Parts)), nil
	}

	if heuristics.IsRepeatRequest(state.LastSupplierMessage()) && state.PartNumbersGiven > 0 {
		part := state.Parts[state.PartNumbersGiven-1]
		text := fmt.Sprintf("Sure, that's %s. Phonetically: %s.",
			heuristics.FormatPartNumberForSpeech(part.PartNumber),
			heuristics.FormatPartNumberPhonetic(part.PartNumber))
		return state.AppendMessage(models.SpeakerAI, text), nil
	}

	if state.PartNumbersGiven < len(state.Parts) {
		part := state.Parts[state.PartNumbersGiven]
		state.PartNumbersGiven++
		text := fmt.Sprintf("The part number for the %s is %s.",
			part.Description, heuristics.FormatPartNumberForSpeech(part.PartNumber))
		if state.PartNumbersGiven == len(state.Parts) {
			text += " " + recapParts(state.Parts)
		}
		return state.AppendMessage(models.SpeakerAI, text), nil
	}

	// Everything has been given; nudge the supplier toward pricing.
	return state.AppendMessage(models.SpeakerAI,
		"That's all of them. Could you give me pricing and availability on those?"), nil
}

func runPriceExtract(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	missing := heuristics.PartsMissingPricing(state.Parts, state.Quotes)
	if len(missing) > 0 {
		text := fmt.Sprintf("Got it, thank you. And how about the %s?", missing[0].Description)
		return state.AppendMessage(models.SpeakerAI, text), nil
	}
	return state.AppendMessage(models.SpeakerAI,
		"Got it, thank you. Let me just confirm everything back."), nil
}

func runNegotiate(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	state.NegotiationAttempts++

	part, quoted, target := negotiationTarget(state)

	var text string
	if deps.Nudge != nil && deps.Nudge.Source == models.NudgeFromCommander && deps.Nudge.Text != "" {
		// Commander leverage beats the generic ask.
		text = deps.Nudge.Text
	} else if part != nil && target > 0 {
		text = fmt.Sprintf(
			"Hmm, %.2f on the %s is a bit over what we were planning. Could you get closer to $%.2f?",
			quoted, part.Description, target)
	} else {
		text = "Is there any room to move on that price? We're comparing a couple of suppliers today."
	}
	return state.AppendMessage(models.SpeakerAI, text), nil
}

// negotiationTarget finds the part whose quote most exceeds its budget
// and the price to push toward.
func negotiationTarget(state models.CallState) (*models.Part, float64, float64) {
	var worst *models.Part
	var worstQuoted, worstTarget, worstOver float64

	for i := range state.Parts {
		part := state.Parts[i]
		if part.BudgetMax == nil {
			continue
		}
		// Corrections are reconciled at read time: only the lowest
		// standing price counts against the budget.
		q, ok := bestQuoteFor(part.PartNumber, state.Quotes)
		if !ok {
			continue
		}
		if over := *q.Price - *part.BudgetMax; over > worstOver {
			worst = &state.Parts[i]
			worstQuoted = *q.Price
			worstTarget = *part.BudgetMax * models.TargetPriceRatio
			worstOver = over
		}
	}
	return worst, worstQuoted, worstTarget
}

func runConfirmation(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	var lines []string
	for _, part := range state.Parts {
		if q, ok := bestQuoteFor(part.PartNumber, state.Quotes); ok && q.Price != nil {
			lines = append(lines, fmt.Sprintf("%s at $%.2f", part.Description, *q.Price))
		}
	}

	var text string
	if len(lines) > 0 {
		text = fmt.Sprintf(
			"Perfect. So to confirm, that's %s. I'll get this over to purchasing — thanks so much for your help.",
			strings.Join(lines, ", "))
	} else {
		text = "Thanks for running through that with me. I'll pass it along to purchasing."
	}

	state.Status = models.CallCompleted
	state.Outcome = "quotes confirmed"
	return state.AppendMessage(models.SpeakerAI, text), nil
}

// bestQuoteFor returns the lowest priced quote for a part, following
// substitute linkage. Later corrective entries win ties.
func bestQuoteFor(partNumber string, quotes []models.ExtractedQuote) (models.ExtractedQuote, bool) {
	var best models.ExtractedQuote
	found := false
	for _, q := range quotes {
		if q.Price == nil {
			continue
		}
		if q.PartNumber != partNumber && q.OriginalPartNumber != partNumber {
			continue
		}
		if !found || *q.Price <= *best.Price {
			best = q
			found = true
		}
	}
	return best, found
}

func runVoicemail(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	text := fmt.Sprintf(
		"Hi, this is a parts inquiry from %s. We're looking for pricing on %s. We'll try again later — thank you.",
		state.OrganizationName, describePartsShort(state.Parts))
	state.Status = models.CallNeedsCallback
	state.NextAction = "retry call later"
	return state.AppendMessage(models.SpeakerAI, text), nil
}

func runTransfer(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	state.NeedsTransfer = true
	return state.AppendMessage(models.SpeakerAI, "Of course, I'll hold. Thank you."), nil
}

func runEscalation(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	state.NeedsHumanEscalation = true
	state.Status = models.CallEscalated
	state.NextAction = "human follow-up required"
	return state.AppendMessage(models.SpeakerAI,
		"You know what, let me have one of our purchasing folks give you a call directly to sort this out. Thanks for your patience."), nil
}

func runClarification(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	state.ClarificationAttempts++
	return state.AppendMessage(models.SpeakerAI,
		fmt.Sprintf("Sorry about that — all I need is pricing and availability on %s.",
			describePartsShort(state.Parts))), nil
}

func runCallback(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	state.Status = models.CallNeedsCallback
	state.NextAction = "schedule callback"
	return state.AppendMessage(models.SpeakerAI,
		"No problem at all, we'll give you a call back. Thanks for your time."), nil
}

func runPoliteEnd(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	state.Status = models.CallCompleted
	if state.Outcome == "" {
		state.Outcome = "call ended politely"
	}
	return state.AppendMessage(models.SpeakerAI, "Thanks again for your help. Have a good one!"), nil
}

// runBotScreening answers an automated screening challenge. A spam
// rejection ends the call; other challenges get a direct answer and
// another attempt, up to the ceiling.
func runBotScreening(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	state.BotScreeningDetected = true
	state.BotScreeningAttempts++

	if state.BotScreeningAttempts > MaxBotScreeningAttempts {
		state.Status = models.CallFailed
		state.Outcome = "could not pass call screening"
		return state, nil
	}

	utterance := state.LastSupplierMessage()
	screen, _ := heuristics.DetectBotScreening(utterance)
	switch screen {
	case heuristics.ScreenSpamRejection:
		state.Status = models.CallFailed
		state.Outcome = "number rejected the call"
		return state, nil
	case heuristics.ScreenCaptcha:
		if answer, ok := heuristics.SolveCaptcha(utterance); ok {
			return state.AppendMessage(models.SpeakerAI, answer), nil
		}
		return state.AppendMessage(models.SpeakerAI,
			fmt.Sprintf("This is a parts pricing inquiry from %s.", state.OrganizationName)), nil
	case heuristics.ScreenUrgencyCheck:
		return state.AppendMessage(models.SpeakerAI,
			"It's not an emergency — just a quick parts pricing question."), nil
	default:
		return state.AppendMessage(models.SpeakerAI,
			fmt.Sprintf("This is %s calling about a parts quote.", state.OrganizationName)), nil
	}
}

func runMiscCosts(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	state.MiscCostsAsked = true
	return state.AppendMessage(models.SpeakerAI,
		"One more thing — since some of that is coming in on order, are there any freight or handling charges we should plan for?"), nil
}

// runConversational answers an off-script supplier question naturally,
// degrading to a generic redirect when the model is unavailable.
func runConversational(ctx context.Context, deps *Deps, state models.CallState) (models.CallState, error) {
	prompt := conversationalPrompt(state, deps.Nudge)
	reply, err := deps.LLM.Complete(ctx, prompt, llm.CompleteOptions{MaxTokens: 256})
	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		reply = fmt.Sprintf("Good question — let me get back to you on that. In the meantime, could you price %s for me?",
			describePartsShort(state.Parts))
	}
	return state.AppendMessage(models.SpeakerAI, reply), nil
}

func conversationalPrompt(state models.CallState, nudge *models.OverseerNudge) string {
	var b strings.Builder
	b.WriteString("You are a friendly procurement agent on a phone call with a parts supplier. ")
	b.WriteString("Answer the supplier's last message briefly and keep the call moving toward pricing.\n\n")

	fmt.Fprintf(&b, "You are calling for %s. Parts needed:\n", state.OrganizationName)
	for _, p := range state.Parts {
		fmt.Fprintf(&b, "- %s (%s), qty %d\n", p.Description, p.PartNumber, p.Quantity)
	}
	if state.Context != "" {
		fmt.Fprintf(&b, "Buyer notes: %s\n", state.Context)
	}
	if nudge != nil && nudge.Text != "" {
		fmt.Fprintf(&b, "Coaching from your supervisor: %s\n", nudge.Text)
	}

	b.WriteString("\nRecent conversation:\n")
	for _, m := range state.RecentHistory(6) {
		fmt.Fprintf(&b, "%s: %s\n", m.Speaker, m.Text)
	}
	b.WriteString("\nRespond with only what you would say next, one or two sentences.")
	return b.String()
}

// describeParts builds the opening description-only request. Raw part
// numbers are never spoken on the first pass.
func describeParts(parts []models.Part) string {
	var items []string
	for _, p := range parts {
		items = append(items, heuristics.QuantityPhrase(p.Quantity, p.Description))
	}
	switch len(items) {
	case 0:
		return "I'm looking to price some parts for an order."
	case 1:
		return fmt.Sprintf("Great. I'm looking to get a price on %s. Could you help with that?", items[0])
	default:
		return fmt.Sprintf("Great. I'm looking to get prices on a few things: %s. Could you help with those?",
			joinNatural(items))
	}
}

func describePartsShort(parts []models.Part) string {
	var items []string
	for _, p := range parts {
		items = append(items, heuristics.QuantityPhrase(p.Quantity, p.Description))
	}
	if len(items) == 0 {
		return "the parts we discussed"
	}
	return joinNatural(items)
}

func recapParts(parts []models.Part) string {
	var items []string
	for _, p := range parts {
		items = append(items, p.PartNumber)
	}
	if len(items) == 1 {
		return "So just the one part number there."
	}
	return fmt.Sprintf("So to recap, that's %s.", joinNatural(items))
}

func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
