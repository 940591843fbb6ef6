package ratelimit

import "strings"

// KeyForDecision builds a limiter key for the wallet under the resolved scope.
func KeyForDecision(wallet string, decision Decision) string {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" || decision.Limit <= 0 {
		return ""
	}
	switch decision.Scope {
	case ScopeBid:
		return "bid:" + wallet
	default:
		return ""
	}
}
