// Package marketplace contains the Wildberries and Ozon connector adapters.
package marketplace

import (
	"strings"

	"github.com/fbstrack/backend/internal/domain/tracking"
)

// maxResponseSize is the maximum allowed marketplace API response size (10MB)
const maxResponseSize = 10 * 1024 * 1024

// fallbackStatus resolves a raw marketplace status that is missing from the
// adapter's mapping table. Checks run in order; the least progressed status
// is the last resort so an unknown value never fakes forward progress.
func fallbackStatus(raw string) tracking.Status {
	lowered := strings.ToLower(raw)
	switch {
	case strings.Contains(lowered, "cancel") || strings.Contains(lowered, "declin") ||
		strings.Contains(lowered, "отказ") || strings.Contains(lowered, "отмен"):
		return tracking.StatusRejection
	case strings.Contains(lowered, "return") || strings.Contains(lowered, "возврат"):
		return tracking.StatusReturnStarted
	case strings.Contains(lowered, "defect") || strings.Contains(lowered, "брак"):
		return tracking.StatusDefect
	default:
		return tracking.StatusNew
	}
}
