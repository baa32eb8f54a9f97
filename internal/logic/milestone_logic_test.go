package logic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilestoneLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	grant := f.grant(t, alice, "Roadmap")

	later := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	sooner := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.milestones.ApplyMilestone(ctx, grant.Id, grant.Slug, alice, MilestoneInput{Method: "POST", Title: "v2", DueDate: &later})
	require.NoError(t, err)
	_, err = f.milestones.ApplyMilestone(ctx, grant.Id, grant.Slug, alice, MilestoneInput{Method: "post", Title: "v1", DueDate: &sooner})
	require.NoError(t, err)

	_, milestones, isAdmin, err := f.milestones.ListMilestones(ctx, grant.Id, grant.Slug, alice)
	require.NoError(t, err)
	assert.True(t, isAdmin)
	require.Len(t, milestones, 2)
	assert.Equal(t, "v1", milestones[0].Title)
	assert.Equal(t, "v2", milestones[1].Title)

	done := time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC)
	_, err = f.milestones.ApplyMilestone(ctx, grant.Id, grant.Slug, alice, MilestoneInput{Method: "PUT", MilestoneId: milestones[0].Id, CompletionDate: &done})
	require.NoError(t, err)

	_, err = f.milestones.ApplyMilestone(ctx, grant.Id, grant.Slug, alice, MilestoneInput{Method: "DELETE", MilestoneId: milestones[1].Id})
	require.NoError(t, err)

	_, milestones, _, err = f.milestones.ListMilestones(ctx, grant.Id, grant.Slug, nil)
	require.NoError(t, err)
	require.Len(t, milestones, 1)
	require.NotNil(t, milestones[0].CompletionDate)
	assert.True(t, done.Equal(*milestones[0].CompletionDate))
}

func TestMilestoneValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	grant := f.grant(t, alice, "Roadmap")
	due := time.Now().Add(24 * time.Hour)

	_, err := f.milestones.ApplyMilestone(ctx, grant.Id, grant.Slug, alice, MilestoneInput{Method: "POST", DueDate: &due})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = f.milestones.ApplyMilestone(ctx, grant.Id, grant.Slug, alice, MilestoneInput{Method: "POST", Title: "no date"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = f.milestones.ApplyMilestone(ctx, grant.Id, grant.Slug, alice, MilestoneInput{Method: "PATCH"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestMilestoneScopedToGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	mine := f.grant(t, alice, "Mine")
	theirs := f.grant(t, bob, "Theirs")
	due := time.Now().Add(24 * time.Hour)

	_, err := f.milestones.ApplyMilestone(ctx, theirs.Id, theirs.Slug, bob, MilestoneInput{Method: "POST", Title: "theirs", DueDate: &due})
	require.NoError(t, err)
	_, milestones, _, err := f.milestones.ListMilestones(ctx, theirs.Id, theirs.Slug, nil)
	require.NoError(t, err)
	require.Len(t, milestones, 1)

	_, err = f.milestones.ApplyMilestone(ctx, mine.Id, mine.Slug, alice, MilestoneInput{Method: "DELETE", MilestoneId: milestones[0].Id})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = f.milestones.ApplyMilestone(ctx, mine.Id, mine.Slug, alice, MilestoneInput{Method: "PUT", MilestoneId: milestones[0].Id, CompletionDate: &due})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, milestones, _, err = f.milestones.ListMilestones(ctx, theirs.Id, theirs.Slug, nil)
	require.NoError(t, err)
	require.Len(t, milestones, 1)
	assert.Nil(t, milestones[0].CompletionDate)
}

func TestMilestoneRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	staff := f.staff(t, "staff")
	grant := f.grant(t, alice, "Roadmap")
	due := time.Now().Add(24 * time.Hour)

	_, err := f.milestones.ApplyMilestone(ctx, grant.Id, grant.Slug, staff, MilestoneInput{Method: "POST", Title: "x", DueDate: &due})
	assert.True(t, errors.Is(err, ErrPermissionDenied))

	_, err = f.milestones.ApplyMilestone(ctx, grant.Id, grant.Slug, nil, MilestoneInput{Method: "POST", Title: "x", DueDate: &due})
	assert.True(t, errors.Is(err, ErrPermissionDenied))
}
