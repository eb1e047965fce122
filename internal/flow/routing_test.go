package flow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/quotecall/quotecall/internal/llm"
	"github.com/quotecall/quotecall/pkg/models"
)

// fakeLLM scripts model behavior for routing tests.
type fakeLLM struct {
	// intent is returned for classification prompts.
	intent string
	// quotesJSON is returned for structured extraction prompts.
	quotesJSON string
	// reply is returned for conversational prompts.
	reply string
	err   error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, opts llm.CompleteOptions) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, "classifying") {
		return f.intent, nil
	}
	return f.reply, nil
}

func (f *fakeLLM) Structured(ctx context.Context, prompt string, opts llm.CompleteOptions) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.quotesJSON == "" {
		return json.RawMessage(`[]`), nil
	}
	return json.RawMessage(f.quotesJSON), nil
}

func (f *fakeLLM) AnalysisModel() string { return "test-model" }

func budget(v float64) *float64 { return &v }

func testParts() []models.Part {
	return []models.Part{
		{PartNumber: "AHC-18598", Description: "hydraulic coupler", Quantity: 1, BudgetMax: budget(50)},
	}
}

func stateAt(node Node) models.CallState {
	return models.CallState{
		CallID:           "call-1",
		QuoteRequestID:   "req-1",
		OrganizationName: "Bayside Equipment",
		Parts:            testParts(),
		CurrentNode:      string(node),
		Status:           models.CallInProgress,
	}
}

func TestRouteFromGreeting(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		intent    string
		want      Node
	}{
		{
			name:      "affirmative goes to quote request",
			utterance: "Yeah, you're speaking to parts.",
			intent:    "affirmative",
			want:      NodeQuoteRequest,
		},
		{
			name:      "transfer goes to hold acknowledgment",
			utterance: "Hold on, let me transfer you.",
			intent:    "transfer",
			want:      NodeTransfer,
		},
		{
			name:      "voicemail goes to voicemail",
			utterance: "Leave a message after the tone.",
			intent:    "voicemail",
			want:      NodeVoicemail,
		},
		{
			name:      "negative ends politely",
			utterance: "We don't do phone quotes.",
			intent:    "negative",
			want:      NodePoliteEnd,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := NewRouter(&fakeLLM{intent: tc.intent})
			_, got := router.Route(context.Background(), stateAt(NodeGreeting), tc.utterance)
			if got != tc.want {
				t.Errorf("Route(greeting, %q) = %s, want %s", tc.utterance, got, tc.want)
			}
		})
	}
}

func TestRoute_BotScreeningShortCircuits(t *testing.T) {
	// A screening phrase must never reach the classifier.
	router := NewRouter(&fakeLLM{err: errors.New("classifier must not be called")})

	_, got := router.Route(context.Background(), stateAt(NodeGreeting),
		"Please verify you are human before we connect you.")
	if got != NodeBotScreening {
		t.Errorf("expected bot_screening, got %s", got)
	}
}

func TestRouteFromQuoteRequest(t *testing.T) {
	t.Run("callback request", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		_, got := router.Route(context.Background(), stateAt(NodeQuoteRequest),
			"He's not in, can you call back later?")
		if got != NodeCallback {
			t.Errorf("expected callback, got %s", got)
		}
	})

	t.Run("repeat request re-enters quote_request", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		_, got := router.Route(context.Background(), stateAt(NodeQuoteRequest),
			"Sorry, can you say that again?")
		if got != NodeQuoteRequest {
			t.Errorf("expected quote_request, got %s", got)
		}
	})

	t.Run("fitment question gets answered not deflected", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		_, got := router.Route(context.Background(), stateAt(NodeQuoteRequest),
			"What year is the truck?")
		if got != NodeConversational {
			t.Errorf("expected conversational_response, got %s", got)
		}
	})

	t.Run("over-budget price goes to negotiate", func(t *testing.T) {
		router := NewRouter(&fakeLLM{quotesJSON: `[{"part_number":"AHC-18598","price":60,"availability":"in_stock"}]`})
		state, got := router.Route(context.Background(), stateAt(NodeQuoteRequest),
			"That one runs $60 each.")
		if got != NodeNegotiate {
			t.Errorf("expected negotiate, got %s", got)
		}
		if len(state.Quotes) != 1 {
			t.Errorf("expected extracted quote appended, got %d", len(state.Quotes))
		}
	})

	t.Run("in-budget full coverage goes to confirmation", func(t *testing.T) {
		router := NewRouter(&fakeLLM{quotesJSON: `[{"part_number":"AHC-18598","price":42.5,"availability":"in_stock"}]`})
		_, got := router.Route(context.Background(), stateAt(NodeQuoteRequest),
			"That's $42.50, in stock.")
		if got != NodeConfirmation {
			t.Errorf("expected confirmation, got %s", got)
		}
	})

	t.Run("backordered coverage asks misc costs first", func(t *testing.T) {
		router := NewRouter(&fakeLLM{quotesJSON: `[{"part_number":"AHC-18598","price":42.5,"availability":"backorder","lead_time_days":10}]`})
		_, got := router.Route(context.Background(), stateAt(NodeQuoteRequest),
			"It's $42.50 but it'd be about ten days out.")
		if got != NodeMiscCosts {
			t.Errorf("expected misc_costs_inquiry, got %s", got)
		}
	})

	t.Run("generic question gets clarification while budget remains", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		_, got := router.Route(context.Background(), stateAt(NodeQuoteRequest),
			"Wait, who did you say you were with?")
		if got != NodeClarification {
			t.Errorf("expected clarification, got %s", got)
		}
	})

	t.Run("generic question escalates after budget exhausted", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		state := stateAt(NodeQuoteRequest)
		state.ClarificationAttempts = MaxClarificationAttempts
		_, got := router.Route(context.Background(), state,
			"Wait, who did you say you were with?")
		if got != NodeEscalation {
			t.Errorf("expected human_escalation, got %s", got)
		}
	})
}

func TestRouteFromNegotiate(t *testing.T) {
	baseState := func() models.CallState {
		state := stateAt(NodeNegotiate)
		state.NegotiationAttempts = 1
		state = state.AppendQuotes(models.ExtractedQuote{
			PartNumber: "AHC-18598", Price: budget(60), Availability: models.AvailabilityInStock,
		})
		return state
	}

	t.Run("refusal goes to confirmation", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		_, got := router.Route(context.Background(), baseState(),
			"That's the best I can do on price.")
		if got != NodeConfirmation {
			t.Errorf("expected confirmation, got %s", got)
		}
	})

	t.Run("lower price goes to confirmation", func(t *testing.T) {
		router := NewRouter(&fakeLLM{quotesJSON: `[{"part_number":"AHC-18598","price":48,"availability":"in_stock"}]`})
		state, got := router.Route(context.Background(), baseState(),
			"Alright, I can do $48 each.")
		if got != NodeConfirmation {
			t.Errorf("expected confirmation, got %s", got)
		}
		if len(state.Quotes) != 2 {
			t.Errorf("expected corrective quote appended, got %d", len(state.Quotes))
		}
	})

	t.Run("no movement loops back to negotiate", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		_, got := router.Route(context.Background(), baseState(),
			"Let me think about it.")
		if got != NodeNegotiate {
			t.Errorf("expected negotiate, got %s", got)
		}
	})

	t.Run("attempt ceiling forces confirmation", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		state := baseState()
		state.NegotiationAttempts = MaxNegotiationAttempts
		_, got := router.Route(context.Background(), state,
			"Let me think about it.")
		if got != NodeConfirmation {
			t.Errorf("expected confirmation, got %s", got)
		}
	})
}

func TestRouteFromConversational(t *testing.T) {
	t.Run("wrap-up phrase ends politely", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		_, got := router.Route(context.Background(), stateAt(NodeConversational),
			"Anything else I can help with?")
		if got != NodePoliteEnd {
			t.Errorf("expected polite_end, got %s", got)
		}
	})

	t.Run("new price moves to price_extract", func(t *testing.T) {
		router := NewRouter(&fakeLLM{quotesJSON: `[{"part_number":"AHC-18598","price":45,"availability":"in_stock"}]`})
		state := stateAt(NodeConversational)
		// Past the early-turn window.
		for i := 0; i < 4; i++ {
			state = state.AppendMessage(models.SpeakerSupplier, "chatting")
		}
		_, got := router.Route(context.Background(), state, "Oh, that one's $45 by the way.")
		if got != NodePriceExtract {
			t.Errorf("expected price_extract, got %s", got)
		}
	})

	t.Run("early turns with no quotes return to quote_request", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		state := stateAt(NodeConversational)
		state = state.AppendMessage(models.SpeakerSupplier, "first thing")
		_, got := router.Route(context.Background(), state, "So how's your day going?")
		if got != NodeQuoteRequest {
			t.Errorf("expected quote_request, got %s", got)
		}
	})

	t.Run("substitute talk stays conversational", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		state := stateAt(NodeConversational)
		for i := 0; i < 5; i++ {
			state = state.AppendMessage(models.SpeakerSupplier, "chatting")
		}
		_, got := router.Route(context.Background(), state,
			"That part's superseded, we carry the equivalent now.")
		if got != NodeConversational {
			t.Errorf("expected conversational_response, got %s", got)
		}
	})

	t.Run("full coverage exits to confirmation", func(t *testing.T) {
		router := NewRouter(&fakeLLM{})
		state := stateAt(NodeConversational)
		state = state.AppendQuotes(models.ExtractedQuote{
			PartNumber: "AHC-18598", Price: budget(42), Availability: models.AvailabilityInStock,
		})
		_, got := router.Route(context.Background(), state, "So yeah, that's the story.")
		if got != NodeConfirmation {
			t.Errorf("expected confirmation, got %s", got)
		}
	})
}
