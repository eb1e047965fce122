package commander

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

// analyzableEvents lists the event types worth an LLM pass. Everything
// else is tracking only.
var analyzableEvents = map[models.EventType]bool{
	models.EventQuoteReceived:         true,
	models.EventQuoteRejected:         true,
	models.EventNegotiationStalled:    true,
	models.EventSupplierWantsCallback: true,
	models.EventCallEnded:             true,
}

// Commander maintains the cross-call view for a procurement request
// and stages directives into individual calls' inboxes.
type Commander struct {
	llm   llm.Service
	store *store.CallStore
}

// New builds a Commander over the shared store.
func New(svc llm.Service, cs *store.CallStore) *Commander {
	return &Commander{llm: svc, store: cs}
}

// HandleEvent processes one Overseer event: deterministic tracking
// first, then a conditional analysis pass that may stage directives.
// Analysis failures degrade to silent tracking.
func (c *Commander) HandleEvent(ctx context.Context, event models.OverseerEvent) error {
	state, err := c.store.GetCommanderState(ctx, event.QuoteRequestID)
	if errors.Is(err, store.ErrNotFound) {
		state = models.NewCommanderState(event.QuoteRequestID)
	} else if err != nil {
		return fmt.Errorf("loading commander state for %s: %w", event.QuoteRequestID, err)
	}

	Apply(state, event)

	if err := c.store.SaveCommanderState(ctx, state); err != nil {
		return fmt.Errorf("saving commander state for %s: %w", event.QuoteRequestID, err)
	}

	if !analyzableEvents[event.EventType] {
		return nil
	}

	directives, err := c.analyze(ctx, state, event)
	if err != nil {
		log.Printf("[commander] WARNING: analysis failed for %s event %s: %v", event.QuoteRequestID, event.EventType, err)
		return nil
	}

	for _, d := range directives {
		if err := c.store.PushDirective(ctx, d); err != nil {
			log.Printf("[commander] WARNING: staging %s for call %s: %v", d.DirectiveType, d.TargetCallID, err)
		}
	}
	return nil
}

// rawDirective mirrors the JSON shape requested from the model.
type rawDirective struct {
	DirectiveType string `json:"directive_type"`
	TargetCallID  string `json:"target_call_id"`
	Message       string `json:"message"`
}

func (c *Commander) analyze(ctx context.Context, state *models.CommanderState, event models.OverseerEvent) ([]models.CommanderDirective, error) {
	prompt := buildDirectivePrompt(state, event)

	raw, err := c.llm.Structured(ctx, prompt, llm.CompleteOptions{
		Model:     c.llm.AnalysisModel(),
		MaxTokens: 1024,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Directives []rawDirective `json:"directives"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode directives: %w", err)
	}

	now := time.Now().UTC()
	var out []models.CommanderDirective
	for _, rd := range parsed.Directives {
		dt := models.DirectiveType(strings.ToLower(strings.TrimSpace(rd.DirectiveType)))
		if dt.Priority() < 0 {
			log.Printf("[commander] dropping unknown directive type %q", rd.DirectiveType)
			continue
		}
		target := strings.TrimSpace(rd.TargetCallID)
		call, known := state.ActiveCalls[target]
		if !known {
			log.Printf("[commander] dropping %s for unknown call %q", dt, target)
			continue
		}
		if call.Status == models.ActiveCallEnded && dt != models.DirectiveEscalate {
			continue // Only escalation matters for a call that already ended.
		}
		if strings.TrimSpace(rd.Message) == "" {
			continue
		}
		out = append(out, models.CommanderDirective{
			DirectiveType: dt,
			TargetCallID:  target,
			Message:       strings.TrimSpace(rd.Message),
			Timestamp:     now,
		})
	}
	return out, nil
}

func buildDirectivePrompt(state *models.CommanderState, event models.OverseerEvent) string {
	var b strings.Builder
	b.WriteString("You coordinate concurrent procurement calls to competing parts suppliers. ")
	b.WriteString("A call just reported an event. Decide whether any call needs a directive.\n\n")

	fmt.Fprintf(&b, "Event: %s from %s (call %s)", event.EventType, event.SupplierName, event.CallID)
	if len(event.Data) > 0 {
		if blob, err := json.Marshal(event.Data); err == nil {
			fmt.Fprintf(&b, " data=%s", blob)
		}
	}
	b.WriteString("\n\nBest quotes so far (authoritative, do not restate or revise):\n")
	for part, best := range state.BestQuotes {
		fmt.Fprintf(&b, "- %s: ", part)
		if best.BestPrice != nil {
			fmt.Fprintf(&b, "$%.2f from %s", *best.BestPrice, best.BestSupplier)
		} else {
			b.WriteString("no price yet")
		}
		if best.BestLeadTimeDays != nil {
			fmt.Fprintf(&b, ", %d days from %s", *best.BestLeadTimeDays, best.BestLeadTimeSupplier)
		}
		fmt.Fprintf(&b, " (%d quotes)", best.QuotesReceived)
		if budget, ok := state.Budgets[part]; ok {
			fmt.Fprintf(&b, " [ceiling $%.2f, target $%.2f]", budget.BudgetCeiling, budget.TargetPrice)
		}
		b.WriteString("\n")
	}

	b.WriteString("Calls in flight:\n")
	for callID, call := range state.ActiveCalls {
		fmt.Fprintf(&b, "- %s: %s (%s", callID, call.SupplierName, call.Status)
		if call.Phase != "" {
			fmt.Fprintf(&b, ", %s", call.Phase)
		}
		b.WriteString(")\n")
	}

	b.WriteString(`
Rules:
- Issue leverage_update to a call only when a competing price beats that call's current best by more than 5%.
- Never wrap_up a supplier that has had fewer than two chances to quote or counter.
- Weigh the total package: price and lead time together, not price alone.
- Issue award only when one supplier clearly wins the whole request.
- Most events need no directive at all.

Respond with JSON only:
{"directives": [{"directive_type": "leverage_update"|"deprioritize"|"wrap_up"|"escalate"|"award", "target_call_id": string, "message": string}]}
Use an empty list when nothing is warranted.`)
	return b.String()
}
