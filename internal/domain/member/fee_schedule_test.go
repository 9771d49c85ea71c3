package member

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeeSchedule(t *testing.T) {
	memberID := uuid.New()

	t.Run("creates schedule with transport", func(t *testing.T) {
		s, err := NewFeeSchedule(memberID, decimal.NewFromInt(120), decimal.NewFromInt(30))
		require.NoError(t, err)
		assert.True(t, s.HasTransport())
	})

	t.Run("zero transport fee means no transport", func(t *testing.T) {
		s, err := NewFeeSchedule(memberID, decimal.NewFromInt(120), decimal.Zero)
		require.NoError(t, err)
		assert.False(t, s.HasTransport())
	})

	t.Run("rejects nil member", func(t *testing.T) {
		_, err := NewFeeSchedule(uuid.Nil, decimal.NewFromInt(120), decimal.Zero)
		require.Error(t, err)
	})

	t.Run("rejects negative fees", func(t *testing.T) {
		_, err := NewFeeSchedule(memberID, decimal.NewFromInt(-1), decimal.Zero)
		require.Error(t, err)
		_, err = NewFeeSchedule(memberID, decimal.NewFromInt(120), decimal.NewFromInt(-1))
		require.Error(t, err)
	})
}

func TestUpdateFees(t *testing.T) {
	t.Run("updates amounts and bumps version", func(t *testing.T) {
		s, err := NewFeeSchedule(uuid.New(), decimal.NewFromInt(120), decimal.Zero)
		require.NoError(t, err)

		require.NoError(t, s.UpdateFees(decimal.NewFromInt(140), decimal.NewFromInt(30)))
		assert.True(t, s.MonthlyFee.Equal(decimal.NewFromInt(140)))
		assert.True(t, s.HasTransport())
		assert.Equal(t, 2, s.GetVersion())
	})

	t.Run("rejects negative fee", func(t *testing.T) {
		s, err := NewFeeSchedule(uuid.New(), decimal.NewFromInt(120), decimal.Zero)
		require.NoError(t, err)
		require.Error(t, s.UpdateFees(decimal.NewFromInt(-5), decimal.Zero))
	})
}
