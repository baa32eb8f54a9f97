package logic

import (
	"context"
	"errors"
	"testing"

	"github.com/blues/grants/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeSubscriptions(t *testing.T, f *fixture, grant *model.GrantModel) int64 {
	t.Helper()

	var count int64
	require.NoError(t, f.db.Model(&model.SubscriptionModel{}).
		Where("grant_id = ? AND active = ?", grant.Id, true).
		Count(&count).Error)
	return count
}

func TestFundCreatesSubscriptionWithDefaults(t *testing.T) {
	f := newFixture(t)
	alice := f.profile(t, "alice")
	carol := f.profile(t, "carol")
	grant := f.grant(t, alice, "Fund Me")

	sub := f.fund(t, grant, carol)

	assert.True(t, sub.Active)
	assert.Equal(t, grant.Id, sub.GrantId)
	assert.Equal(t, carol.Id, sub.ContributorProfileId)
	assert.EqualValues(t, model.DefaultPeriodSeconds, sub.RealPeriodSeconds)
	assert.EqualValues(t, 30, sub.Frequency)
	assert.Equal(t, "days", sub.FrequencyUnit)
	assert.Equal(t, DefaultNetwork, sub.Network)
	assert.True(t, decimal.NewFromInt(5).Equal(sub.AmountPerPeriod))

	assert.Equal(t, 1, f.notifier.count(model.NotificationNewSupporter))
	assert.Equal(t, 1, f.notifier.count(model.NotificationThankYou))
}

func TestFundOwnGrantRejected(t *testing.T) {
	f := newFixture(t)
	alice := f.profile(t, "alice")
	grant := f.grant(t, alice, "Own")

	_, _, err := f.subscriptions.Fund(context.Background(), grant.Id, grant.Slug, alice, FundInput{})
	se, ok := IsStateError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid Grant Subscription", se.Title)
	assert.Equal(t, "You cannot fund your own Grant.", se.Text)
	assert.Zero(t, activeSubscriptions(t, f, grant))
	assert.Zero(t, f.notifier.count(model.NotificationNewSupporter))
}

func TestFundTwiceRejected(t *testing.T) {
	f := newFixture(t)
	alice := f.profile(t, "alice")
	carol := f.profile(t, "carol")
	grant := f.grant(t, alice, "Twice")

	f.fund(t, grant, carol)

	_, _, err := f.subscriptions.Fund(context.Background(), grant.Id, grant.Slug, carol, FundInput{})
	se, ok := IsStateError(err)
	require.True(t, ok)
	assert.Equal(t, "Subscription Exists", se.Title)
	assert.Equal(t, "You already have an active subscription for this grant.", se.Text)
	assert.EqualValues(t, 1, activeSubscriptions(t, f, grant))
}

func TestActiveSubscriptionUniqueIndex(t *testing.T) {
	f := newFixture(t)
	alice := f.profile(t, "alice")
	carol := f.profile(t, "carol")
	grant := f.grant(t, alice, "Indexed")
	f.fund(t, grant, carol)

	err := f.db.Create(&model.SubscriptionModel{GrantId: grant.Id, ContributorProfileId: carol.Id, Active: true}).Error
	assert.Error(t, err)
	assert.EqualValues(t, 1, activeSubscriptions(t, f, grant))
}

func TestFundInactiveGrantRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	carol := f.profile(t, "carol")
	grant := f.grant(t, alice, "Ended")
	_, err := f.grants.ApplyAction(ctx, grant.Id, grant.Slug, alice, CancelGrant{})
	require.NoError(t, err)

	for _, actor := range []*model.ProfileModel{carol, alice} {
		_, _, err = f.subscriptions.Fund(ctx, grant.Id, grant.Slug, actor, FundInput{AmountPerPeriod: decimal.NewFromInt(1)})
		se, ok := IsStateError(err)
		require.True(t, ok)
		assert.Equal(t, "Grant Ended", se.Title)
		assert.Equal(t, "This Grant is not longer active.", se.Text)
	}
	assert.Zero(t, activeSubscriptions(t, f, grant))
}

func TestFundMissingGrant(t *testing.T) {
	f := newFixture(t)
	carol := f.profile(t, "carol")

	_, err := f.subscriptions.CheckFundable(context.Background(), 404, "missing", carol)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFundAfterCancelAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	carol := f.profile(t, "carol")
	grant := f.grant(t, alice, "Again")
	sub := f.fund(t, grant, carol)

	_, _, err := f.subscriptions.CancelSubscription(ctx, grant.Id, grant.Slug, sub.Id, carol, CancelInput{})
	require.NoError(t, err)

	f.fund(t, grant, carol)
	assert.EqualValues(t, 1, activeSubscriptions(t, f, grant))
}

func TestCancelSubscriptionOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	carol := f.profile(t, "carol")
	grant := f.grant(t, alice, "Cancel Sub")
	sub := f.fund(t, grant, carol)

	_, cancelled, err := f.subscriptions.CancelSubscription(ctx, grant.Id, grant.Slug, sub.Id, carol, CancelInput{
		EndApproveTxId: "0xend",
		CancelTxId:     "0xcancel",
	})
	require.NoError(t, err)
	assert.False(t, cancelled.Active)
	assert.Equal(t, 1, f.notifier.count(model.NotificationSupportCancellation))

	var stored model.SubscriptionModel
	require.NoError(t, f.db.First(&stored, sub.Id).Error)
	assert.False(t, stored.Active)
	assert.Equal(t, "0xend", stored.EndApproveTxId)
	assert.Equal(t, "0xcancel", stored.CancelTxId)

	_, _, err = f.subscriptions.CancelSubscription(ctx, grant.Id, grant.Slug, sub.Id, carol, CancelInput{CancelTxId: "0xother"})
	se, ok := IsStateError(err)
	require.True(t, ok)
	assert.Equal(t, "Grant Subscription Cancelled", se.Title)
	assert.Equal(t, "This Grant subscription has already been cancelled.", se.Text)
	assert.Equal(t, 1, f.notifier.count(model.NotificationSupportCancellation))

	require.NoError(t, f.db.First(&stored, sub.Id).Error)
	assert.Equal(t, "0xcancel", stored.CancelTxId)
}

func TestCancelSubscriptionOnInactiveGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	carol := f.profile(t, "carol")
	grant := f.grant(t, alice, "Gone")
	sub := f.fund(t, grant, carol)

	_, _, err := f.subscriptions.CancelSubscription(ctx, grant.Id, grant.Slug, sub.Id, carol, CancelInput{})
	require.NoError(t, err)
	_, err = f.grants.ApplyAction(ctx, grant.Id, grant.Slug, alice, CancelGrant{})
	require.NoError(t, err)

	_, _, err = f.subscriptions.GetCancellable(ctx, grant.Id, grant.Slug, sub.Id)
	se, ok := IsStateError(err)
	require.True(t, ok)
	assert.Equal(t, "This Subscription is already cancelled as the grant is not longer active.", se.Text)
}

func TestCancelSubscriptionGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	carol := f.profile(t, "carol")
	mallory := f.profile(t, "mallory")
	staff := f.staff(t, "staff")
	grant := f.grant(t, alice, "Guarded Sub")
	sub := f.fund(t, grant, carol)

	_, _, err := f.subscriptions.CancelSubscription(ctx, grant.Id, grant.Slug, sub.Id, mallory, CancelInput{})
	assert.True(t, errors.Is(err, ErrPermissionDenied))
	_, _, err = f.subscriptions.CancelSubscription(ctx, grant.Id, grant.Slug, sub.Id, alice, CancelInput{})
	assert.True(t, errors.Is(err, ErrPermissionDenied))
	assert.EqualValues(t, 1, activeSubscriptions(t, f, grant))

	_, _, err = f.subscriptions.CancelSubscription(ctx, grant.Id, grant.Slug, sub.Id, staff, CancelInput{})
	require.NoError(t, err)
	assert.Zero(t, activeSubscriptions(t, f, grant))
}

func TestCancelSubscriptionScopedToGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	carol := f.profile(t, "carol")
	first := f.grant(t, alice, "First")
	second := f.grant(t, alice, "Second")
	sub := f.fund(t, first, carol)

	_, _, err := f.subscriptions.CancelSubscription(ctx, second.Id, second.Slug, sub.Id, carol, CancelInput{})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.EqualValues(t, 1, activeSubscriptions(t, f, first))
}
