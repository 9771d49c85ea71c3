package member

import (
	"time"

	"github.com/academy/backend/internal/domain/shared"
)

// Event type constants for the member aggregate
const (
	EventTypeMemberRegistered           = "member.registered"
	EventTypeMemberStatusChanged        = "member.status_changed"
	EventTypeMemberFrozen               = "member.frozen"
	EventTypeRegistrationDateCorrected  = "member.registration_date_corrected"
	EventTypeFeeScheduleConfigured      = "member.fee_schedule_configured"
)

// MemberRegisteredEvent is emitted when a member is registered
type MemberRegisteredEvent struct {
	shared.BaseDomainEvent
	FullName         string    `json:"full_name"`
	RegistrationDate time.Time `json:"registration_date"`
	Status           Status    `json:"status"`
}

// NewMemberRegisteredEvent creates a new MemberRegisteredEvent
func NewMemberRegisteredEvent(m *Member) *MemberRegisteredEvent {
	return &MemberRegisteredEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeMemberRegistered, "Member", m.ID),
		FullName:         m.FullName,
		RegistrationDate: m.RegistrationDate,
		Status:           m.Status,
	}
}

// MemberStatusChangedEvent is emitted on any status transition
type MemberStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus Status `json:"old_status"`
	NewStatus Status `json:"new_status"`
	Reason    string `json:"reason,omitempty"`
}

// NewMemberStatusChangedEvent creates a new MemberStatusChangedEvent
func NewMemberStatusChangedEvent(m *Member, old Status, reason string) *MemberStatusChangedEvent {
	return &MemberStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMemberStatusChanged, "Member", m.ID),
		OldStatus:       old,
		NewStatus:       m.Status,
		Reason:          reason,
	}
}

// MemberFrozenEvent is emitted when a member is frozen
type MemberFrozenEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason,omitempty"`
}

// NewMemberFrozenEvent creates a new MemberFrozenEvent
func NewMemberFrozenEvent(m *Member, reason string) *MemberFrozenEvent {
	return &MemberFrozenEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMemberFrozen, "Member", m.ID),
		Reason:          reason,
	}
}

// RegistrationDateCorrectedEvent is emitted when an operator corrects the
// registration date. Consumers must treat existing coverage as stale.
type RegistrationDateCorrectedEvent struct {
	shared.BaseDomainEvent
	OldDate time.Time `json:"old_date"`
	NewDate time.Time `json:"new_date"`
}

// NewRegistrationDateCorrectedEvent creates a new RegistrationDateCorrectedEvent
func NewRegistrationDateCorrectedEvent(m *Member, oldDate time.Time) *RegistrationDateCorrectedEvent {
	return &RegistrationDateCorrectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRegistrationDateCorrected, "Member", m.ID),
		OldDate:         oldDate,
		NewDate:         m.RegistrationDate,
	}
}
