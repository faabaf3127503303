// Package quota implements the stateless tier-limit predicates. The
// orchestrator supplies freshly-read counts; nothing here caches or
// mutates state, so a denial always reflects the counts it was given.
package quota

import "github.com/varhold/varhold/internal/models"

// CanCreateVariable reports whether a user at currentCount variables may
// create another. The boundary is strict: a count equal to the limit is full.
func CanCreateVariable(currentCount int, tier *models.Tier) bool {
	return currentCount < tier.MaxVariables
}

// CanCreateAPIKey reports whether a user at currentCount active API keys
// may create another.
func CanCreateAPIKey(currentCount int, tier *models.Tier) bool {
	return currentCount < tier.MaxAPIKeys
}

// WithinSizeLimit reports whether a document of sizeBytes fits the tier's
// per-variable limit. The boundary is inclusive at byte granularity: a
// document of exactly the limit is allowed, one byte more is not.
func WithinSizeLimit(sizeBytes int64, tier *models.Tier) bool {
	return sizeBytes <= tier.MaxVariableSizeBytes()
}

// WithinRateLimit reports whether a user who has made requestsToday
// requests may make another.
func WithinRateLimit(requestsToday int, tier *models.Tier) bool {
	return requestsToday < tier.MaxRequestsPerDay
}
