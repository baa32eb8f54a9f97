package logic

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/blues/grants/internal/database"
	"github.com/blues/grants/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentNotification struct {
	kind           model.NotificationKind
	grantId        int64
	subscriptionId int64
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, kind model.NotificationKind, grant *model.GrantModel, sub *model.SubscriptionModel) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := sentNotification{kind: kind, grantId: grant.Id}
	if sub != nil {
		n.subscriptionId = sub.Id
	}
	f.sent = append(f.sent, n)
}

func (f *fakeNotifier) count(kind model.NotificationKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, n := range f.sent {
		if n.kind == kind {
			total++
		}
	}
	return total
}

type fakeAssets struct {
	uploaded []string
}

func (f *fakeAssets) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.uploaded = append(f.uploaded, name)
	return "https://cdn.example.com/" + name, nil
}

type fixture struct {
	db            *gorm.DB
	notifier      *fakeNotifier
	assets        *fakeAssets
	grants        *GrantLogic
	milestones    *MilestoneLogic
	subscriptions *SubscriptionLogic
	profiles      *ProfileLogic
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	notifier := &fakeNotifier{}
	assets := &fakeAssets{}
	grants := NewGrantLogic(db, notifier, assets)

	return &fixture{
		db:            db,
		notifier:      notifier,
		assets:        assets,
		grants:        grants,
		milestones:    NewMilestoneLogic(db, grants),
		subscriptions: NewSubscriptionLogic(db, grants, notifier),
		profiles:      NewProfileLogic(db),
	}
}

func (f *fixture) profile(t *testing.T, handle string) *model.ProfileModel {
	t.Helper()

	p := model.NewProfileModel(handle, handle+"@example.com")
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) staff(t *testing.T, handle string) *model.ProfileModel {
	t.Helper()

	p := &model.ProfileModel{Handle: handle, Email: handle + "@example.com", IsStaff: true}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) grant(t *testing.T, admin *model.ProfileModel, title string, team ...int64) *model.GrantModel {
	t.Helper()

	grant, err := f.grants.CreateGrant(context.Background(), admin, CreateGrantInput{
		Title:           title,
		Description:     "Funding for " + title,
		ContractAddress: "0x00000000000000000000000000000000000000c1",
		TokenAddress:    model.ZeroAddress,
		TokenSymbol:     "ETH",
		AmountGoal:      decimal.NewFromInt(10),
		TeamMembers:     team,
	})
	require.NoError(t, err)
	return grant
}

func (f *fixture) fund(t *testing.T, grant *model.GrantModel, contributor *model.ProfileModel) *model.SubscriptionModel {
	t.Helper()

	_, sub, err := f.subscriptions.Fund(context.Background(), grant.Id, grant.Slug, contributor, FundInput{
		ContributorAddress: "0x00000000000000000000000000000000000000a1",
		AmountPerPeriod:    decimal.NewFromInt(5),
		TokenAddress:       model.ZeroAddress,
	})
	require.NoError(t, err)
	return sub
}

func teamIds(grant *model.GrantModel) []int64 {
	ids := make([]int64, 0, len(grant.TeamMembers))
	for _, m := range grant.TeamMembers {
		ids = append(ids, m.Id)
	}
	return ids
}
