package member

import (
	"time"

	"github.com/academy/backend/internal/domain/shared"
)

// Status represents the lifecycle status of a member
type Status string

const (
	StatusActive   Status = "ACTIVE"   // Enrolled and billable
	StatusTrial    Status = "TRIAL"    // Trial period, billable
	StatusFrozen   Status = "FROZEN"   // Suspended for non-payment, not attending
	StatusInactive Status = "INACTIVE" // Left the academy
)

// IsValid checks if the status is a valid member Status
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusTrial, StatusFrozen, StatusInactive:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsBillable returns true if the member should be evaluated for due status
func (s Status) IsBillable() bool {
	return s == StatusActive || s == StatusTrial
}

// Member represents an enrolled student. The day-of-month of the
// registration date is the member's billing anchor day; every monthly
// billing window starts on that day (clamped to the month length).
type Member struct {
	shared.BaseAggregateRoot
	FullName         string    `json:"full_name"`
	Phone            string    `json:"phone"`
	GuardianPhone    string    `json:"guardian_phone"`
	RegistrationDate time.Time `json:"registration_date"`
	Status           Status    `json:"status"`
	Remark           string    `json:"remark"`
}

// NewMember creates a new member
func NewMember(fullName, phone string, registrationDate time.Time, status Status) (*Member, error) {
	if fullName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Member name cannot be empty")
	}
	if len(fullName) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Member name cannot exceed 200 characters")
	}
	if registrationDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_REGISTRATION_DATE", "Registration date is required")
	}
	if status == "" {
		status = StatusTrial
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Member status is not valid")
	}

	m := &Member{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FullName:          fullName,
		Phone:             phone,
		RegistrationDate:  dateOnly(registrationDate),
		Status:            status,
	}

	m.AddDomainEvent(NewMemberRegisteredEvent(m))

	return m, nil
}

// BillingAnchorDay returns the day-of-month that anchors the member's
// billing cycle.
func (m *Member) BillingAnchorDay() int {
	return m.RegistrationDate.Day()
}

// Activate moves the member to ACTIVE status
func (m *Member) Activate() error {
	if m.Status == StatusInactive {
		return shared.NewDomainError("INVALID_STATE", "Cannot activate an inactive member")
	}
	if m.Status == StatusActive {
		return nil
	}
	m.changeStatus(StatusActive, "")
	return nil
}

// Freeze suspends the member, typically as the blocked-tier escalation
// side effect.
func (m *Member) Freeze(reason string) error {
	if m.Status == StatusInactive {
		return shared.NewDomainError("INVALID_STATE", "Cannot freeze an inactive member")
	}
	if m.Status == StatusFrozen {
		return nil
	}
	m.changeStatus(StatusFrozen, reason)
	m.AddDomainEvent(NewMemberFrozenEvent(m, reason))
	return nil
}

// Deactivate marks the member as having left the academy
func (m *Member) Deactivate(reason string) error {
	if m.Status == StatusInactive {
		return nil
	}
	m.changeStatus(StatusInactive, reason)
	return nil
}

// CorrectRegistrationDate applies an explicit operator correction of the
// registration date. Existing coverage becomes semantically stale; the
// emitted event signals that a full coverage rebuild is required.
func (m *Member) CorrectRegistrationDate(newDate time.Time) error {
	if newDate.IsZero() {
		return shared.NewDomainError("INVALID_REGISTRATION_DATE", "Registration date is required")
	}
	oldDate := m.RegistrationDate
	if oldDate.Equal(newDate) {
		return nil
	}
	m.RegistrationDate = dateOnly(newDate)
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
	m.AddDomainEvent(NewRegistrationDateCorrectedEvent(m, oldDate))
	return nil
}

// SetContact updates contact details
func (m *Member) SetContact(phone, guardianPhone string) {
	m.Phone = phone
	m.GuardianPhone = guardianPhone
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
}

// SetRemark sets the remark
func (m *Member) SetRemark(remark string) {
	m.Remark = remark
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
}

// IsBillable returns true if the member participates in billing evaluation
func (m *Member) IsBillable() bool {
	return m.Status.IsBillable()
}

// IsFrozen returns true if the member is frozen
func (m *Member) IsFrozen() bool {
	return m.Status == StatusFrozen
}

// dateOnly strips the time-of-day component, keeping the calendar date in
// the original location.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (m *Member) changeStatus(status Status, reason string) {
	old := m.Status
	m.Status = status
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
	m.AddDomainEvent(NewMemberStatusChangedEvent(m, old, reason))
}
