package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// MemberSortFields contains allowed sort fields for members
var MemberSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"full_name":         true,
	"phone":             true,
	"registration_date": true,
	"status":            true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"member_id":      true,
	"amount":         true,
	"category":       true,
	"method":         true,
	"payment_date":   true,
	"coverage_start": true,
	"coverage_end":   true,
	"payer_name":     true,
}

// CoverageRecordSortFields contains allowed sort fields for coverage records
var CoverageRecordSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"member_id":   true,
	"category":    true,
	"year_month":  true,
	"amount_due":  true,
	"amount_paid": true,
	"state":       true,
}

// EscalationSortFields contains allowed sort fields for escalations
var EscalationSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"member_id":   true,
	"category":    true,
	"year_month":  true,
	"tier":        true,
	"resolved_at": true,
}
