package member

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewMember(t *testing.T) {
	t.Run("creates member with valid inputs", func(t *testing.T) {
		m, err := NewMember("Ana Petrova", "555-0101", date(2026, time.March, 31), StatusActive)
		require.NoError(t, err)
		require.NotNil(t, m)

		assert.Equal(t, "Ana Petrova", m.FullName)
		assert.Equal(t, date(2026, time.March, 31), m.RegistrationDate)
		assert.Equal(t, 31, m.BillingAnchorDay())
		assert.Equal(t, StatusActive, m.Status)
		assert.True(t, m.IsBillable())
		assert.Equal(t, 1, m.GetVersion())
	})

	t.Run("defaults to trial status", func(t *testing.T) {
		m, err := NewMember("Ana Petrova", "", date(2026, time.March, 1), "")
		require.NoError(t, err)
		assert.Equal(t, StatusTrial, m.Status)
		assert.True(t, m.IsBillable())
	})

	t.Run("strips time of day from registration date", func(t *testing.T) {
		m, err := NewMember("Ana Petrova", "", time.Date(2026, time.March, 31, 23, 15, 0, 0, time.UTC), StatusActive)
		require.NoError(t, err)
		assert.Equal(t, date(2026, time.March, 31), m.RegistrationDate)
	})

	t.Run("publishes MemberRegistered event", func(t *testing.T) {
		m, err := NewMember("Ana Petrova", "", date(2026, time.March, 1), StatusActive)
		require.NoError(t, err)

		events := m.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeMemberRegistered, events[0].EventType())
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewMember("", "", date(2026, time.March, 1), StatusActive)
		require.Error(t, err)
	})

	t.Run("fails with zero registration date", func(t *testing.T) {
		_, err := NewMember("Ana Petrova", "", time.Time{}, StatusActive)
		require.Error(t, err)
	})

	t.Run("fails with unknown status", func(t *testing.T) {
		_, err := NewMember("Ana Petrova", "", date(2026, time.March, 1), Status("PAUSED"))
		require.Error(t, err)
	})
}

func TestMemberStatusTransitions(t *testing.T) {
	newActive := func(t *testing.T) *Member {
		t.Helper()
		m, err := NewMember("Ana Petrova", "", date(2026, time.March, 1), StatusActive)
		require.NoError(t, err)
		m.ClearDomainEvents()
		return m
	}

	t.Run("freeze emits frozen event and stops billing", func(t *testing.T) {
		m := newActive(t)
		require.NoError(t, m.Freeze("unpaid dues"))

		assert.Equal(t, StatusFrozen, m.Status)
		assert.True(t, m.IsFrozen())
		assert.False(t, m.IsBillable())

		events := m.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, EventTypeMemberStatusChanged, events[0].EventType())
		assert.Equal(t, EventTypeMemberFrozen, events[1].EventType())
	})

	t.Run("freeze is idempotent", func(t *testing.T) {
		m := newActive(t)
		require.NoError(t, m.Freeze("unpaid dues"))
		m.ClearDomainEvents()
		require.NoError(t, m.Freeze("unpaid dues"))
		assert.Empty(t, m.GetDomainEvents())
	})

	t.Run("frozen member can be reactivated", func(t *testing.T) {
		m := newActive(t)
		require.NoError(t, m.Freeze("unpaid dues"))
		require.NoError(t, m.Activate())
		assert.Equal(t, StatusActive, m.Status)
	})

	t.Run("inactive member cannot be activated or frozen", func(t *testing.T) {
		m := newActive(t)
		require.NoError(t, m.Deactivate("moved away"))
		require.Error(t, m.Activate())
		require.Error(t, m.Freeze("unpaid dues"))
	})
}

func TestCorrectRegistrationDate(t *testing.T) {
	t.Run("changes anchor and emits correction event", func(t *testing.T) {
		m, err := NewMember("Ana Petrova", "", date(2026, time.March, 10), StatusActive)
		require.NoError(t, err)
		m.ClearDomainEvents()

		require.NoError(t, m.CorrectRegistrationDate(date(2026, time.March, 25)))
		assert.Equal(t, 25, m.BillingAnchorDay())

		events := m.GetDomainEvents()
		require.Len(t, events, 1)
		event, ok := events[0].(*RegistrationDateCorrectedEvent)
		require.True(t, ok)
		assert.Equal(t, date(2026, time.March, 10), event.OldDate)
		assert.Equal(t, date(2026, time.March, 25), event.NewDate)
	})

	t.Run("same date is a no-op", func(t *testing.T) {
		m, err := NewMember("Ana Petrova", "", date(2026, time.March, 10), StatusActive)
		require.NoError(t, err)
		m.ClearDomainEvents()

		require.NoError(t, m.CorrectRegistrationDate(date(2026, time.March, 10)))
		assert.Empty(t, m.GetDomainEvents())
		assert.Equal(t, 1, m.GetVersion())
	})

	t.Run("rejects zero date", func(t *testing.T) {
		m, err := NewMember("Ana Petrova", "", date(2026, time.March, 10), StatusActive)
		require.NoError(t, err)
		require.Error(t, m.CorrectRegistrationDate(time.Time{}))
	})
}
