// Package commander implements the cross-call supervisor: one
// aggregation state per procurement request, fed by Overseer events. A
// deterministic tracker is the source of truth for best quotes; an LLM
// pass only ever adds directives on top of it.
package commander

import (
	"github.com/quotecall/quotecall/pkg/models"
)

// Apply folds one event into the request's aggregation state. It is
// purely deterministic and authoritative: the analysis pass never
// rewrites what Apply recorded.
func Apply(state *models.CommanderState, event models.OverseerEvent) {
	call := state.ActiveCalls[event.CallID]
	if call == nil {
		call = &models.ActiveCall{
			SupplierID:   event.SupplierID,
			SupplierName: event.SupplierName,
			Status:       models.ActiveCallActive,
		}
		state.ActiveCalls[event.CallID] = call
	}
	if call.SupplierID == "" {
		call.SupplierID = event.SupplierID
	}
	if call.SupplierName == "" {
		call.SupplierName = event.SupplierName
	}

	switch event.EventType {
	case models.EventQuoteReceived:
		applyQuote(state, event)
	case models.EventCallEnded:
		call.Status = models.ActiveCallEnded
	case models.EventTransferInProgress, models.EventSupplierWantsCallback:
		// Liveness only; the call entry above is the whole update.
	}

	if phase, ok := event.Data["phase"].(string); ok {
		call.Phase = models.Phase(phase)
	}

	state.EventsProcessed++
	if event.Timestamp.After(state.LastEventTimestamp) {
		state.LastEventTimestamp = event.Timestamp
	}
}

// applyQuote updates per-part bests. Fields only improve: a worse
// price or lead time never replaces an existing value.
func applyQuote(state *models.CommanderState, event models.OverseerEvent) {
	partNumber, ok := event.Data["part_number"].(string)
	if !ok || partNumber == "" {
		return
	}

	best := state.BestQuotes[partNumber]
	if best == nil {
		best = &models.BestQuote{}
		state.BestQuotes[partNumber] = best
	}
	best.QuotesReceived++

	if price, ok := dataFloat(event.Data, "price"); ok {
		if best.BestPrice == nil || price < *best.BestPrice {
			best.BestPrice = &price
			best.BestSupplier = event.SupplierName
		}
	}
	if days, ok := dataInt(event.Data, "lead_time_days"); ok {
		if best.BestLeadTimeDays == nil || days < *best.BestLeadTimeDays {
			best.BestLeadTimeDays = &days
			best.BestLeadTimeSupplier = event.SupplierName
		}
	}
	if ceiling, ok := dataFloat(event.Data, "budget_max"); ok {
		if _, seeded := state.Budgets[partNumber]; !seeded {
			state.Budgets[partNumber] = models.NewPartBudget(ceiling)
		}
	}
}

// dataFloat reads a numeric field from decoded JSON, where numbers
// arrive as float64.
func dataFloat(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func dataInt(data map[string]any, key string) (int, bool) {
	f, ok := dataFloat(data, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}
