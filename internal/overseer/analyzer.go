package overseer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/quotecall/quotecall/internal/llm"
	"github.com/quotecall/quotecall/internal/store"
	"github.com/quotecall/quotecall/pkg/models"
)

// EventPublisher pushes Overseer events toward the Commander. Publish
// failures are warnings, never fatal to the call.
type EventPublisher interface {
	Publish(ctx context.Context, event models.OverseerEvent) error
}

// Overseer reviews call turns asynchronously. Its only outputs are the
// staged nudge, updated supervisory state, and events on the queue.
type Overseer struct {
	llm    llm.Service
	store  *store.CallStore
	events EventPublisher
}

// New builds an Overseer. events may be nil to run without a Commander.
func New(svc llm.Service, cs *store.CallStore, events EventPublisher) *Overseer {
	return &Overseer{llm: svc, store: cs, events: events}
}

// Review runs one supervisory pass over the call's latest turn. It is
// dispatched fire-and-forget: every failure path degrades to "no
// supervision this turn" and is logged, never returned to the caller.
func (o *Overseer) Review(ctx context.Context, state models.CallState) {
	sup, err := o.store.GetOverseerState(ctx, state.CallID)
	if errors.Is(err, store.ErrNotFound) {
		sup = models.NewOverseerState(state.CallID)
	} else if err != nil {
		log.Printf("[overseer] WARNING: loading state for %s: %v", state.CallID, err)
		return
	}

	turn := state.SupplierTurns()
	if turn <= sup.LastAnalyzedTurn {
		return // Already reviewed; idempotent under redelivery.
	}
	sup.LastAnalyzedTurn = turn

	// The turn that ended the call has nothing left to coach, but the
	// Commander still needs to hear the line went dead. Analysis can
	// only run while a call is live, so the terminal report is
	// deterministic rather than model-driven.
	if state.Status.Terminal() {
		o.publish(ctx, state, turn, models.EventCallEnded, map[string]any{
			"status":  string(state.Status),
			"outcome": state.Outcome,
			"phase":   string(sup.Phase),
		})
		o.save(ctx, sup)
		return
	}

	fire, reason := ShouldFire(state, sup)
	if !fire {
		// A hold during transfer is likewise reported without
		// analysis, so the request-level view keeps the call alive.
		if state.CurrentNode == nodeTransfer {
			o.publish(ctx, state, turn, models.EventTransferInProgress, nil)
		}
		o.save(ctx, sup)
		return
	}

	directives, err := o.store.PeekDirectives(ctx, state.CallID)
	if err != nil {
		log.Printf("[overseer] WARNING: peeking directives for %s: %v", state.CallID, err)
		directives = nil
	}

	analysis, err := o.analyze(ctx, state, sup, directives, reason)
	if err != nil {
		// Advance past the turn so it is not retried forever, but touch
		// nothing else.
		log.Printf("[overseer] WARNING: analysis failed for %s turn %d: %v", state.CallID, turn, err)
		o.save(ctx, sup)
		return
	}

	sup = o.apply(ctx, state, sup, analysis, directives, turn)
	o.save(ctx, sup)

	// Directives are cleared only after a successful fold; a crash
	// before this leaves them for retry.
	if len(directives) > 0 {
		if err := o.store.ConsumeDirectives(ctx, state.CallID); err != nil {
			log.Printf("[overseer] WARNING: consuming directives for %s: %v", state.CallID, err)
		}
	}
}

// publish emits one event toward the Commander, stamping call
// provenance. Failures are logged and swallowed.
func (o *Overseer) publish(ctx context.Context, state models.CallState, turn int, eventType models.EventType, data map[string]any) {
	if o.events == nil {
		return
	}
	event := models.OverseerEvent{
		CallID:         state.CallID,
		QuoteRequestID: state.QuoteRequestID,
		SupplierID:     state.SupplierID,
		SupplierName:   state.SupplierName,
		EventType:      eventType,
		Timestamp:      time.Now().UTC(),
		TurnNumber:     turn,
		Data:           data,
	}
	if err := o.events.Publish(ctx, event); err != nil {
		log.Printf("[overseer] WARNING: publishing %s for %s: %v", eventType, state.CallID, err)
	}
}

func (o *Overseer) save(ctx context.Context, sup models.OverseerState) {
	if err := o.store.SaveOverseerState(ctx, sup); err != nil {
		log.Printf("[overseer] WARNING: saving state for %s: %v", sup.CallID, err)
	}
}

// apply folds a validated analysis into the supervisory state, staging
// a nudge and emitting an event as warranted.
func (o *Overseer) apply(ctx context.Context, state models.CallState, sup models.OverseerState, analysis analysisResult, directives []models.CommanderDirective, turn int) models.OverseerState {
	var transition string

	// An award directive ends the contest: the winning call moves
	// straight to FINALIZE regardless of what the model said.
	for _, d := range directives {
		if d.DirectiveType == models.DirectiveAward {
			analysis.Phase = models.PhaseFinalize
		}
	}

	if analysis.Phase != "" && sup.Phase.CanAdvanceTo(analysis.Phase) {
		transition = fmt.Sprintf("%s->%s", sup.Phase, analysis.Phase)
		sup.Phase = analysis.Phase
	}

	nudgeText := analysis.NudgeText
	priority := analysis.NudgePriority
	if nudgeText == "" && transition != "" {
		// A silent phase transition still coaches the agent.
		nudgeText = defaultTransitionNudge(sup.Phase)
		priority = models.NudgeP0
	}
	if nudgeText != "" {
		nudge := models.OverseerNudge{
			Priority:        priority,
			Text:            nudgeText,
			TurnNumber:      turn + 1,
			Phase:           sup.Phase,
			Timestamp:       time.Now().UTC(),
			Source:          models.NudgeFromOverseer,
			PhaseTransition: transition,
		}
		if len(directives) > 0 {
			nudge.Source = models.NudgeFromCommander
		}
		if err := o.store.StageNudge(ctx, state.CallID, nudge); err != nil {
			log.Printf("[overseer] WARNING: staging nudge for %s: %v", state.CallID, err)
		}
	}

	if analysis.Event != "" {
		o.publish(ctx, state, turn, analysis.Event, analysis.EventData)
	}

	sup.InfoWeNeed = analysis.InfoWeNeed
	sup.InfoTheyWant = analysis.InfoTheyWant
	if analysis.Note != "" {
		sup.NegotiationNotes = append(sup.NegotiationNotes, analysis.Note)
	}
	if analysis.FlaggedIssue != "" {
		sup = sup.FlagIssue(analysis.FlaggedIssue)
	}
	return sup
}

// analysisResult is the validated, defaulted form of the model output.
type analysisResult struct {
	Phase         models.Phase
	NudgeText     string
	NudgePriority models.NudgePriority
	Event         models.EventType
	EventData     map[string]any
	InfoWeNeed    models.InfoWeNeed
	InfoTheyWant  models.InfoTheyWant
	Note          string
	FlaggedIssue  string
}

// rawAnalysis mirrors the JSON shape requested from the model.
type rawAnalysis struct {
	Phase string `json:"phase"`
	Nudge *struct {
		Priority string `json:"priority"`
		Text     string `json:"text"`
	} `json:"nudge"`
	Event *struct {
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	} `json:"event"`
	InfoWeNeed struct {
		UnitPrices        string `json:"unit_prices"`
		LeadTime          string `json:"lead_time"`
		StockStatus       string `json:"stock_status"`
		AllPartsAddressed *bool  `json:"all_parts_addressed"`
	} `json:"info_we_need"`
	InfoTheyWant struct {
		Quantity      string `json:"quantity"`
		CompanyName   string `json:"company_name"`
		AccountNumber string `json:"account_number"`
	} `json:"info_they_want"`
	NegotiationNote string `json:"negotiation_note"`
	FlaggedIssue    string `json:"flagged_issue"`
}

func (o *Overseer) analyze(ctx context.Context, state models.CallState, sup models.OverseerState, directives []models.CommanderDirective, reason string) (analysisResult, error) {
	prompt := buildAnalysisPrompt(state, sup, directives, reason)

	raw, err := o.llm.Structured(ctx, prompt, llm.CompleteOptions{
		Model:     o.llm.AnalysisModel(),
		MaxTokens: 1024,
	})
	if err != nil {
		return analysisResult{}, err
	}

	var parsed rawAnalysis
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return analysisResult{}, fmt.Errorf("decode analysis: %w", err)
	}
	return coerceAnalysis(parsed, sup), nil
}

// coerceAnalysis validates the model output field by field, replacing
// anything malformed with a safe default instead of rejecting the
// whole response.
func coerceAnalysis(parsed rawAnalysis, sup models.OverseerState) analysisResult {
	result := analysisResult{
		Phase:        parsePhase(parsed.Phase, sup.Phase),
		InfoWeNeed:   sup.InfoWeNeed,
		InfoTheyWant: sup.InfoTheyWant,
		Note:         strings.TrimSpace(parsed.NegotiationNote),
		FlaggedIssue: strings.TrimSpace(parsed.FlaggedIssue),
	}

	if parsed.Nudge != nil && strings.TrimSpace(parsed.Nudge.Text) != "" {
		result.NudgeText = strings.TrimSpace(parsed.Nudge.Text)
		result.NudgePriority = parsePriority(parsed.Nudge.Priority)
	}

	if parsed.Event != nil {
		if et, ok := parseEventType(parsed.Event.EventType); ok {
			result.Event = et
			result.EventData = parsed.Event.Data
		}
	}

	result.InfoWeNeed.UnitPrices = parseInfoStatus(parsed.InfoWeNeed.UnitPrices, result.InfoWeNeed.UnitPrices)
	result.InfoWeNeed.LeadTime = parseInfoStatus(parsed.InfoWeNeed.LeadTime, result.InfoWeNeed.LeadTime)
	result.InfoWeNeed.StockStatus = parseInfoStatus(parsed.InfoWeNeed.StockStatus, result.InfoWeNeed.StockStatus)
	if parsed.InfoWeNeed.AllPartsAddressed != nil {
		result.InfoWeNeed.AllPartsAddressed = *parsed.InfoWeNeed.AllPartsAddressed
	}

	result.InfoTheyWant.Quantity = parseAskStatus(parsed.InfoTheyWant.Quantity, result.InfoTheyWant.Quantity)
	result.InfoTheyWant.CompanyName = parseAskStatus(parsed.InfoTheyWant.CompanyName, result.InfoTheyWant.CompanyName)
	result.InfoTheyWant.AccountNumber = parseAskStatus(parsed.InfoTheyWant.AccountNumber, result.InfoTheyWant.AccountNumber)

	return result
}

func parsePhase(s string, current models.Phase) models.Phase {
	switch models.Phase(strings.ToUpper(strings.TrimSpace(s))) {
	case models.PhaseGather:
		return models.PhaseGather
	case models.PhaseNegotiate:
		return models.PhaseNegotiate
	case models.PhaseFinalize:
		return models.PhaseFinalize
	default:
		return current
	}
}

func parsePriority(s string) models.NudgePriority {
	switch models.NudgePriority(strings.ToUpper(strings.TrimSpace(s))) {
	case models.NudgeP0:
		return models.NudgeP0
	case models.NudgeP2:
		return models.NudgeP2
	default:
		return models.NudgeP1
	}
}

func parseEventType(s string) (models.EventType, bool) {
	et := models.EventType(strings.ToLower(strings.TrimSpace(s)))
	switch et {
	case models.EventQuoteReceived, models.EventQuoteRejected, models.EventNegotiationStalled,
		models.EventTransferInProgress, models.EventSupplierWantsCallback,
		models.EventCallEnded, models.EventErrorDetected:
		return et, true
	default:
		return "", false
	}
}

func parseInfoStatus(s string, current models.InfoStatus) models.InfoStatus {
	switch models.InfoStatus(strings.ToLower(strings.TrimSpace(s))) {
	case models.InfoPending:
		return models.InfoPending
	case models.InfoPartial:
		return models.InfoPartial
	case models.InfoCollected:
		return models.InfoCollected
	case models.InfoNotApplicable:
		return models.InfoNotApplicable
	default:
		return current
	}
}

func parseAskStatus(s string, current models.AskStatus) models.AskStatus {
	switch models.AskStatus(strings.ToLower(strings.TrimSpace(s))) {
	case models.AskNotAsked:
		return models.AskNotAsked
	case models.AskAsked:
		return models.AskAsked
	case models.AskAnswered:
		return models.AskAnswered
	default:
		return current
	}
}

// defaultTransitionNudge synthesizes P0 coaching when the model moved
// the phase without saying what to do about it.
func defaultTransitionNudge(phase models.Phase) string {
	switch phase {
	case models.PhaseNegotiate:
		return "Pricing is on the table. Push for a better number before you wrap up."
	case models.PhaseFinalize:
		return "Confirm the final numbers and close the call politely."
	default:
		return "Keep gathering pricing, stock, and lead time for every part."
	}
}

func buildAnalysisPrompt(state models.CallState, sup models.OverseerState, directives []models.CommanderDirective, reason string) string {
	var b strings.Builder
	b.WriteString("You are supervising an automated procurement call with a parts supplier. ")
	b.WriteString("Review the latest turn and decide whether to coach the agent.\n\n")

	fmt.Fprintf(&b, "Current phase: %s (triggered by: %s)\n", sup.Phase, reason)

	b.WriteString("Parts requested:\n")
	for _, p := range state.Parts {
		if p.BudgetMax != nil {
			fmt.Fprintf(&b, "- %s (%s), qty %d, budget $%.2f\n", p.PartNumber, p.Description, p.Quantity, *p.BudgetMax)
		} else {
			fmt.Fprintf(&b, "- %s (%s), qty %d\n", p.PartNumber, p.Description, p.Quantity)
		}
	}

	if len(state.Quotes) > 0 {
		b.WriteString("Quotes so far:\n")
		for _, q := range state.Quotes {
			if q.Price != nil {
				fmt.Fprintf(&b, "- %s: $%.2f (%s)\n", q.PartNumber, *q.Price, q.Availability)
			} else {
				fmt.Fprintf(&b, "- %s: no price (%s)\n", q.PartNumber, q.Availability)
			}
		}
	}

	fmt.Fprintf(&b, "Tracking: unit prices %s, lead time %s, stock %s\n",
		sup.InfoWeNeed.UnitPrices, sup.InfoWeNeed.LeadTime, sup.InfoWeNeed.StockStatus)

	if len(sup.FlaggedIssues) > 0 {
		recent := sup.FlaggedIssues
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		fmt.Fprintf(&b, "Recent flagged issues: %s\n", strings.Join(recent, "; "))
	}

	for _, d := range directives {
		fmt.Fprintf(&b, "Commander directive (%s): %s\n", d.DirectiveType, d.Message)
	}

	b.WriteString("\nRecent conversation:\n")
	for _, m := range state.RecentHistory(8) {
		fmt.Fprintf(&b, "%s: %s\n", m.Speaker, m.Text)
	}

	b.WriteString(`
Respond with JSON only:
{"phase": "GATHER"|"NEGOTIATE"|"FINALIZE",
 "nudge": {"priority": "P0"|"P1"|"P2", "text": string} | null,
 "event": {"event_type": "quote_received"|"quote_rejected"|"negotiation_stalled"|"transfer_in_progress"|"supplier_wants_callback"|"call_ended"|"error_detected", "data": object} | null,
 "info_we_need": {"unit_prices": "pending"|"partial"|"collected", "lead_time": "pending"|"collected"|"not_applicable", "stock_status": "pending"|"collected"|"not_applicable", "all_parts_addressed": bool},
 "info_they_want": {"quantity": "not_asked"|"asked"|"answered", "company_name": "not_asked"|"asked"|"answered", "account_number": "not_asked"|"asked"|"answered"},
 "negotiation_note": string|null,
 "flagged_issue": string|null}
Only include a nudge when the agent genuinely needs coaching. Only flag an event when something material happened.
For quote_received events, data must carry "part_number" and "price", plus "lead_time_days" and "budget_max" when known.`)
	return b.String()
}
