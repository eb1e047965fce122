package store

import (
	"fmt"
	"time"
)

// TTLs for each key class. Call-scoped state expires an hour after the
// last write; commander state lives longer because one procurement
// request spans many sequential and parallel calls.
const (
	CallStateTTL      = time.Hour
	OverseerStateTTL  = time.Hour
	CommanderStateTTL = 2 * time.Hour
	CallLockTTL       = 15 * time.Second
	NudgeTTL          = 120 * time.Second
	DirectivesTTL     = 300 * time.Second
)

const keyPrefix = "quotecall"

func callKey(callID string) string {
	return fmt.Sprintf("%s:call:%s", keyPrefix, callID)
}

func callLockKey(callID string) string {
	return fmt.Sprintf("%s:lock:%s", keyPrefix, callID)
}

func overseerKey(callID string) string {
	return fmt.Sprintf("%s:overseer:%s", keyPrefix, callID)
}

func commanderKey(quoteRequestID string) string {
	return fmt.Sprintf("%s:commander:%s", keyPrefix, quoteRequestID)
}

func nudgeKey(callID string) string {
	return fmt.Sprintf("%s:nudge:%s", keyPrefix, callID)
}

func directivesKey(callID string) string {
	return fmt.Sprintf("%s:directives:%s", keyPrefix, callID)
}

func requestCallsKey(quoteRequestID string) string {
	return fmt.Sprintf("%s:req:%s:calls", keyPrefix, quoteRequestID)
}
