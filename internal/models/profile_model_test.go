package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileState(t *testing.T) {
	now := time.Now()
	p := NewProfile("user_1", "a@example.com", now)
	assert.Equal(t, StateUnsubscribed, p.State())

	active := true
	require.NoError(t, ProfileUpdate{
		SubscriptionTier:     SetValue(IntervalMonth),
		StripeSubscriptionID: SetValue("sub_1"),
		SubscriptionActive:   &active,
	}.Apply(p, now))
	assert.Equal(t, StateActive, p.State())
	assert.True(t, p.Consistent())

	inactive := false
	require.NoError(t, ProfileUpdate{SubscriptionActive: &inactive}.Apply(p, now))
	assert.Equal(t, StatePastDue, p.State())
	assert.Equal(t, IntervalMonth, *p.SubscriptionTier)

	require.NoError(t, ProfileUpdate{
		SubscriptionTier:     SetNull[PlanInterval](),
		StripeSubscriptionID: SetNull[string](),
	}.Apply(p, now))
	assert.Equal(t, StateUnsubscribed, p.State())
	assert.Nil(t, p.SubscriptionTier)
}

func TestProfileUpdateLeavesUnsetFields(t *testing.T) {
	now := time.Now()
	p := NewProfile("user_1", "a@example.com", now)
	require.NoError(t, ProfileUpdate{StripeSubscriptionID: SetValue("sub_1")}.Apply(p, now))
	require.NoError(t, ProfileUpdate{LastEventAt: &now}.Apply(p, now))

	assert.Equal(t, "sub_1", *p.StripeSubscriptionID)
	assert.Equal(t, "a@example.com", p.Email)
}

func TestPlanIntervalValid(t *testing.T) {
	assert.True(t, IntervalWeek.Valid())
	assert.True(t, PlanInterval("year").Valid())
	assert.False(t, PlanInterval("day").Valid())
	assert.False(t, PlanInterval("").Valid())
}

func TestProfileUpdateRejectsOlderEvent(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Minute)
	p := NewProfile("user_1", "a@example.com", now)
	active := true

	require.NoError(t, ProfileUpdate{SubscriptionActive: &active, LastEventAt: &now}.Apply(p, now))

	inactive := false
	err := ProfileUpdate{SubscriptionActive: &inactive, LastEventAt: &earlier}.Apply(p, now)
	require.ErrorIs(t, err, ErrStaleUpdate)
	assert.True(t, p.SubscriptionActive)

	// Same timestamp is a replay, not a regression.
	require.NoError(t, ProfileUpdate{SubscriptionActive: &active, LastEventAt: &now}.Apply(p, now))
}

func TestProfileUpdateRejectsReleasedSubscription(t *testing.T) {
	now := time.Now()
	p := NewProfile("user_1", "a@example.com", now)
	require.NoError(t, ProfileUpdate{ReleasedSubscriptionID: SetValue("sub_1")}.Apply(p, now))

	active := true
	err := ProfileUpdate{
		StripeSubscriptionID: SetValue("sub_1"),
		SubscriptionActive:   &active,
		UnlessReleased:       "sub_1",
	}.Apply(p, now)
	require.ErrorIs(t, err, ErrReleasedSubscription)
	assert.False(t, p.SubscriptionActive)

	require.NoError(t, ProfileUpdate{
		StripeSubscriptionID: SetValue("sub_2"),
		SubscriptionActive:   &active,
		UnlessReleased:       "sub_2",
	}.Apply(p, now))
	assert.True(t, p.SubscriptionActive)
}
