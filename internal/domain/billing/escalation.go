package billing

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EscalationTier is the follow-up stage of an overdue debt
type EscalationTier string

const (
	EscalationTierNone     EscalationTier = "NONE"
	EscalationTierReminder EscalationTier = "REMINDER"
	EscalationTierWarning  EscalationTier = "WARNING"
	EscalationTierBlocked  EscalationTier = "BLOCKED" // Member gets frozen at this tier
)

// rank orders tiers for the monotonic-advance rule
func (t EscalationTier) rank() int {
	switch t {
	case EscalationTierReminder:
		return 1
	case EscalationTierWarning:
		return 2
	case EscalationTierBlocked:
		return 3
	}
	return 0
}

// AtLeast reports whether t is the same tier as other or past it
func (t EscalationTier) AtLeast(other EscalationTier) bool {
	return t.rank() >= other.rank()
}

// TierThresholds maps days overdue to escalation tiers
type TierThresholds struct {
	ReminderDays int
	WarningDays  int
	BlockedDays  int
}

// DefaultTierThresholds returns the standard 1/5/10 day ladder
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{ReminderDays: 1, WarningDays: 5, BlockedDays: 10}
}

// Validate checks the ladder is strictly increasing
func (t TierThresholds) Validate() error {
	if t.ReminderDays < 1 || t.WarningDays <= t.ReminderDays || t.BlockedDays <= t.WarningDays {
		return shared.NewDomainError("INVALID_THRESHOLDS", "Escalation thresholds must be strictly increasing and start at 1 or later")
	}
	return nil
}

// TierFor returns the tier a debt of the given age belongs to
func (t TierThresholds) TierFor(daysOverdue int) EscalationTier {
	switch {
	case daysOverdue >= t.BlockedDays:
		return EscalationTierBlocked
	case daysOverdue >= t.WarningDays:
		return EscalationTierWarning
	case daysOverdue >= t.ReminderDays:
		return EscalationTierReminder
	}
	return EscalationTierNone
}

// NotificationEntry records a single tier transition on an escalation
type NotificationEntry struct {
	Tier        EscalationTier `json:"tier"`
	DaysOverdue int            `json:"days_overdue"`
	SentAt      time.Time      `json:"sent_at"`
}

// NotificationLog is the ordered history of tier transitions, stored as a
// JSONB column.
type NotificationLog []NotificationEntry

// Value implements driver.Valuer for JSONB storage
func (l NotificationLog) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSONB retrieval
func (l *NotificationLog) Scan(value interface{}) error {
	if value == nil {
		*l = NotificationLog{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into NotificationLog", value)
	}
	if len(data) == 0 {
		*l = NotificationLog{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// Escalation tracks the follow-up state of one overdue ledger key. An
// instance only ever moves forward through the tiers; once the debt is
// settled the instance is resolved and kept for history, and a later
// overdue on the same key opens a fresh instance.
type Escalation struct {
	shared.BaseAggregateRoot
	MemberID      uuid.UUID       `json:"member_id"`
	Category      FeeCategory     `json:"category"`
	YearMonth     YearMonth       `json:"year_month"`
	Tier          EscalationTier  `json:"tier"`
	Notifications NotificationLog `json:"notifications"`
	ResolvedAt    *time.Time      `json:"resolved_at"`
}

// NewEscalation opens a new escalation at the given tier
func NewEscalation(memberID uuid.UUID, category FeeCategory, ym YearMonth, tier EscalationTier, daysOverdue int) (*Escalation, error) {
	if memberID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEMBER", "Member ID cannot be empty")
	}
	if !category.CarriesCoverage() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Only coverage-bearing categories escalate")
	}
	if !ym.IsValid() {
		return nil, shared.NewDomainError("INVALID_YEAR_MONTH", "Year-month must be in YYYY-MM form")
	}
	if tier == EscalationTierNone {
		return nil, shared.NewDomainError("INVALID_TIER", "An escalation cannot open at tier NONE")
	}

	e := &Escalation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MemberID:          memberID,
		Category:          category,
		YearMonth:         ym,
		Tier:              tier,
		Notifications: NotificationLog{{
			Tier:        tier,
			DaysOverdue: daysOverdue,
			SentAt:      time.Now(),
		}},
	}
	e.AddDomainEvent(NewEscalationAdvancedEvent(e, daysOverdue))
	return e, nil
}

// IsOpen returns true while the underlying debt is unsettled
func (e *Escalation) IsOpen() bool {
	return e.ResolvedAt == nil
}

// AdvanceTo moves the escalation to a later tier. Moving sideways or
// backwards is a no-op; a shrinking days-overdue figure never demotes an
// instance. Returns true when the tier actually changed.
func (e *Escalation) AdvanceTo(tier EscalationTier, daysOverdue int) bool {
	if !e.IsOpen() || tier.rank() <= e.Tier.rank() {
		return false
	}
	e.Tier = tier
	e.Notifications = append(e.Notifications, NotificationEntry{
		Tier:        tier,
		DaysOverdue: daysOverdue,
		SentAt:      time.Now(),
	})
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
	e.AddDomainEvent(NewEscalationAdvancedEvent(e, daysOverdue))
	return true
}

// Resolve closes the escalation because the debt was settled. The row is
// kept as history.
func (e *Escalation) Resolve() {
	if !e.IsOpen() {
		return
	}
	now := time.Now()
	e.ResolvedAt = &now
	e.UpdatedAt = now
	e.IncrementVersion()
	e.AddDomainEvent(NewEscalationResolvedEvent(e))
}
