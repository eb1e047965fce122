// Package overseer implements the per-call asynchronous supervisor: a
// cheap gating pass decides whether a turn deserves model analysis,
// and the analysis stages coaching nudges, phase transitions, and
// outward events without ever blocking the conversation.
package overseer

import (
	"github.com/quotecall/quotecall/internal/heuristics"
	"github.com/quotecall/quotecall/pkg/models"
)

// Node names the Overseer treats specially. Kept as plain strings so
// supervision stays decoupled from the state machine package.
const (
	nodeTransfer       = "transfer"
	nodeBotScreening   = "bot_screening"
	nodeConversational = "conversational_response"
)

// Gating thresholds.
const (
	minTurnsBeforeAnalysis = 1
	infoOverdueTurns       = 4
	stuckConversationTurns = 8
)

// ShouldFire applies the gating rules: skip triggers first, then fire
// triggers. reason names the matched rule for logging.
func ShouldFire(state models.CallState, sup models.OverseerState) (bool, string) {
	if state.Status.Terminal() {
		return false, "terminal status"
	}

	turn := state.SupplierTurns()
	if turn <= minTurnsBeforeAnalysis {
		return false, "too early"
	}

	switch state.CurrentNode {
	case nodeTransfer, nodeBotScreening:
		return false, "hold or screening node"
	}

	last := state.LastSupplierMessage()

	if heuristics.ContainsPricingLanguage(last) {
		return true, "pricing language"
	}
	if turn > infoOverdueTurns && infoStillPending(sup.InfoWeNeed) {
		return true, "required info overdue"
	}
	if sup.Phase == models.PhaseNegotiate {
		return true, "negotiation turn"
	}
	if heuristics.MentionsSubstitute(last) {
		return true, "substitute offered"
	}
	if heuristics.IsEmailDeflection(last) {
		return true, "email deflection"
	}
	if state.CurrentNode == nodeConversational && turn > stuckConversationTurns {
		return true, "stuck in conversation"
	}
	// Everything is collected, so the next turn or two will close the
	// call; this is the last chance to coach the wrap-up. The closing
	// nodes themselves end the call in the same turn, which the
	// terminal check above already covers.
	if sup.Phase != models.PhaseFinalize && infoComplete(sup.InfoWeNeed) {
		return true, "approaching close"
	}
	if heuristics.HasNegativeSentiment(last) || heuristics.IsRefusal(last) {
		return true, "negative sentiment"
	}

	// Routine chit-chat is not reviewed; that bounds model spend.
	return false, "routine turn"
}

func infoStillPending(info models.InfoWeNeed) bool {
	return info.UnitPrices == models.InfoPending ||
		info.LeadTime == models.InfoPending ||
		info.StockStatus == models.InfoPending
}

func infoComplete(info models.InfoWeNeed) bool {
	return info.AllPartsAddressed &&
		infoDone(info.UnitPrices) && infoDone(info.LeadTime) && infoDone(info.StockStatus)
}

func infoDone(s models.InfoStatus) bool {
	return s == models.InfoCollected || s == models.InfoNotApplicable
}
