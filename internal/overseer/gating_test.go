package overseer

import (
	"testing"

	"github.com/quotecall/quotecall/pkg/models"
)

func stateWithSupplierTurns(texts ...string) models.CallState {
	state := models.CallState{
		CallID:      "call-1",
		Status:      models.CallInProgress,
		CurrentNode: "quote_request",
	}
	for _, t := range texts {
		state = state.AppendMessage(models.SpeakerAI, "ok")
		state = state.AppendMessage(models.SpeakerSupplier, t)
	}
	return state
}

func TestShouldFire_SkipRules(t *testing.T) {
	collected := models.NewOverseerState("call-1")
	collected.InfoWeNeed = models.InfoWeNeed{
		UnitPrices:  models.InfoCollected,
		LeadTime:    models.InfoCollected,
		StockStatus: models.InfoCollected,
	}

	tests := []struct {
		name  string
		state models.CallState
		sup   models.OverseerState
	}{
		{
			name: "terminal status never fires",
			state: func() models.CallState {
				s := stateWithSupplierTurns("Hello", "That'll be $40 each.")
				s.Status = models.CallCompleted
				return s
			}(),
			sup: models.NewOverseerState("call-1"),
		},
		{
			name:  "first supplier turn never fires",
			state: stateWithSupplierTurns("That'll be $40 each."),
			sup:   models.NewOverseerState("call-1"),
		},
		{
			name: "transfer hold never fires",
			state: func() models.CallState {
				s := stateWithSupplierTurns("Hello", "Let me put you through, it's $40.")
				s.CurrentNode = "transfer"
				return s
			}(),
			sup: models.NewOverseerState("call-1"),
		},
		{
			name: "bot screening never fires",
			state: func() models.CallState {
				s := stateWithSupplierTurns("Hello", "What is three plus four?")
				s.CurrentNode = "bot_screening"
				return s
			}(),
			sup: models.NewOverseerState("call-1"),
		},
		{
			name:  "routine turn skips",
			state: stateWithSupplierTurns("Hello", "One moment please."),
			sup:   collected,
		},
		{
			name:  "finalize phase stops the approaching-close trigger",
			state: stateWithSupplierTurns("Hello", "One moment please."),
			sup: func() models.OverseerState {
				s := models.NewOverseerState("call-1")
				s.Phase = models.PhaseFinalize
				s.InfoWeNeed = models.InfoWeNeed{
					UnitPrices:        models.InfoCollected,
					LeadTime:          models.InfoCollected,
					StockStatus:       models.InfoCollected,
					AllPartsAddressed: true,
				}
				return s
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fire, reason := ShouldFire(tt.state, tt.sup)
			if fire {
				t.Errorf("ShouldFire() = true (%s), want false", reason)
			}
		})
	}
}

func TestShouldFire_FireRules(t *testing.T) {
	fresh := models.NewOverseerState("call-1")

	tests := []struct {
		name  string
		state models.CallState
		sup   models.OverseerState
		want  string
	}{
		{
			name:  "pricing language",
			state: stateWithSupplierTurns("Hello", "That'll be $42.50 each."),
			sup:   fresh,
			want:  "pricing language",
		},
		{
			name:  "info overdue after four turns",
			state: stateWithSupplierTurns("Hi", "Yes", "Hold on", "Still here", "Almost done"),
			sup:   fresh,
			want:  "required info overdue",
		},
		{
			name:  "every turn during negotiation",
			state: stateWithSupplierTurns("Hello", "Let me think about it."),
			sup: func() models.OverseerState {
				s := models.NewOverseerState("call-1")
				s.Phase = models.PhaseNegotiate
				return s
			}(),
			want: "negotiation turn",
		},
		{
			name:  "substitute offered",
			state: stateWithSupplierTurns("Hello", "We have an equivalent part instead."),
			sup:   fresh,
			want:  "substitute offered",
		},
		{
			name:  "email deflection",
			state: stateWithSupplierTurns("Hello", "Just email us your request."),
			sup:   fresh,
			want:  "email deflection",
		},
		{
			name:  "approaching close once everything is collected",
			state: stateWithSupplierTurns("Hello", "Sounds good."),
			sup: func() models.OverseerState {
				s := models.NewOverseerState("call-1")
				s.InfoWeNeed = models.InfoWeNeed{
					UnitPrices:        models.InfoCollected,
					LeadTime:          models.InfoCollected,
					StockStatus:       models.InfoNotApplicable,
					AllPartsAddressed: true,
				}
				return s
			}(),
			want: "approaching close",
		},
		{
			name:  "refusal",
			state: stateWithSupplierTurns("Hello", "Take it or leave it."),
			sup:   fresh,
			want:  "negative sentiment",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fire, reason := ShouldFire(tt.state, tt.sup)
			if !fire {
				t.Fatalf("ShouldFire() = false (%s), want true", reason)
			}
			if reason != tt.want {
				t.Errorf("reason = %q, want %q", reason, tt.want)
			}
		})
	}
}

func TestShouldFire_StuckConversation(t *testing.T) {
	var texts []string
	for i := 0; i < 9; i++ {
		texts = append(texts, "Mm-hm.")
	}
	state := stateWithSupplierTurns(texts...)
	state.CurrentNode = "conversational_response"

	sup := models.NewOverseerState("call-1")
	sup.InfoWeNeed = models.InfoWeNeed{
		UnitPrices:  models.InfoCollected,
		LeadTime:    models.InfoCollected,
		StockStatus: models.InfoCollected,
	}

	fire, reason := ShouldFire(state, sup)
	if !fire || reason != "stuck in conversation" {
		t.Errorf("ShouldFire() = %v (%s), want stuck in conversation", fire, reason)
	}
}
