package webhook

import "strings"

// Provider status vocabulary. Statuses are folded to lower case and trimmed
// before mapping; anything outside both sets is deliberately left unmapped so
// an unknown status can never fail an order.
var successStatuses = map[string]struct{}{
	"success":    {},
	"succeeded":  {},
	"paid":       {},
	"completed":  {},
	"complete":   {},
	"authorised": {},
	"authorized": {},
	"9":          {},
	"0":          {},
	"00":         {},
	"200":        {},
}

var failedStatuses = map[string]struct{}{
	"failed":    {},
	"declined":  {},
	"cancelled": {},
	"canceled":  {},
	"voided":    {},
	"refused":   {},
	"10":        {},
	"400":       {},
	"402":       {},
	"500":       {},
}

// Fold normalizes a provider status for comparison and storage.
func Fold(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// IsSuccess reports whether a folded status means the payment settled.
func IsSuccess(status string) bool {
	_, ok := successStatuses[status]
	return ok
}

// IsFailed reports whether a folded status means the payment failed.
func IsFailed(status string) bool {
	_, ok := failedStatuses[status]
	return ok
}
