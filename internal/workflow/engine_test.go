package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentflow/internal/common"
)

var (
	creator = common.Actor{UserID: "creator-1", Role: common.RoleContentCreator}
	manager = common.Actor{UserID: "manager-1", Role: common.RoleManager}
	admin   = common.Actor{UserID: "admin-1", Role: common.RoleAdmin}
	viewer  = common.Actor{UserID: "viewer-1", Role: common.RoleUser}

	now = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
)

func draftItem() common.Item {
	return common.Item{
		ID:       "item-1",
		OwnerID:  creator.UserID,
		Scope:    "brand-a",
		MediaRef: "665f1c2a9b1e8a0012345678",
		Kind:     common.KindPost,
		Status:   common.StatusDraft,
		Order:    0,
	}
}

func TestApply_SubmitThenReject(t *testing.T) {
	item := draftItem()
	require.Equal(t, common.StatusDraft, item.Status)
	require.Equal(t, 0, item.Order)

	item, err := Apply(item, Request{Transition: common.TransitionSubmit, Actor: creator, At: now})
	require.NoError(t, err)
	assert.Equal(t, common.StatusReview, item.Status)

	item, err = Apply(item, Request{Transition: common.TransitionReject, Actor: manager, Reason: "blurry image", At: now})
	require.NoError(t, err)
	assert.Equal(t, common.StatusDraft, item.Status)
	require.NotNil(t, item.RejectionReason)
	assert.Equal(t, "blurry image", *item.RejectionReason)
	require.NotNil(t, item.RejectedAt)
	assert.Equal(t, now, *item.RejectedAt)
	assert.Equal(t, manager.UserID, *item.RejectedBy)
	assert.NoError(t, CheckInvariants(item))
}

func TestFullRoundTrip(t *testing.T) {
	date := now.Add(48 * time.Hour)
	item := draftItem()

	steps := []struct {
		req    Request
		status common.Status
	}{
		{Request{Transition: common.TransitionSubmit, Actor: creator}, common.StatusReview},
		{Request{Transition: common.TransitionApprove, Actor: manager}, common.StatusApproved},
		{Request{Transition: common.TransitionSchedule, Actor: admin, ScheduledDate: &date}, common.StatusScheduled},
		{Request{Transition: common.TransitionRevert, Actor: manager}, common.StatusApproved},
		{Request{Transition: common.TransitionSchedule, Actor: manager}, common.StatusScheduled},
		{Request{Transition: common.TransitionPublish, Actor: admin}, common.StatusPublished},
	}

	for _, step := range steps {
		var err error
		item, err = Apply(item, step.req)
		require.NoError(t, err, step.req.Transition)
		assert.Equal(t, step.status, item.Status, step.req.Transition)
		assert.NoError(t, CheckInvariants(item))
	}
	require.NotNil(t, item.ScheduledDate)
	assert.Equal(t, date, *item.ScheduledDate)
}

func TestApply_ErrorKinds(t *testing.T) {
	review := draftItem()
	review.Status = common.StatusReview
	approved := draftItem()
	approved.Status = common.StatusApproved

	tests := []struct {
		name  string
		item  common.Item
		req   Request
		check func(error) bool
	}{
		{"creator cannot approve", review, Request{Transition: common.TransitionApprove, Actor: creator}, common.IsPermission},
		{"user cannot submit", draftItem(), Request{Transition: common.TransitionSubmit, Actor: viewer}, common.IsPermission},
		{"approve a draft is stale", draftItem(), Request{Transition: common.TransitionApprove, Actor: manager}, common.IsConflict},
		{"double submit is stale", review, Request{Transition: common.TransitionSubmit, Actor: creator}, common.IsConflict},
		{"reject without reason", review, Request{Transition: common.TransitionReject, Actor: manager, Reason: "  "}, common.IsValidation},
		{"schedule without date", approved, Request{Transition: common.TransitionSchedule, Actor: manager}, common.IsValidation},
		{"unknown transition", review, Request{Transition: "archive", Actor: admin}, common.IsValidation},
		{"permission checked before edge", draftItem(), Request{Transition: common.TransitionPublish, Actor: creator}, common.IsPermission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.item.Clone()
			out, err := Apply(tt.item, tt.req)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
			assert.Equal(t, before, out, "failed transition must not change the item")
		})
	}
}

func TestSubmitClearsRejection(t *testing.T) {
	item := draftItem()
	item.Status = common.StatusReview
	item, err := Apply(item, Request{Transition: common.TransitionReject, Actor: admin, Reason: "off brand"})
	require.NoError(t, err)

	item, err = Apply(item, Request{Transition: common.TransitionSubmit, Actor: creator})
	require.NoError(t, err)
	assert.Nil(t, item.RejectionReason)
	assert.Nil(t, item.RejectedAt)
	assert.Nil(t, item.RejectedBy)
}

func TestApply_DoesNotAliasInput(t *testing.T) {
	date := now
	item := draftItem()
	item.Status = common.StatusApproved

	out, err := Apply(item, Request{Transition: common.TransitionSchedule, Actor: manager, ScheduledDate: &date})
	require.NoError(t, err)

	*out.ScheduledDate = out.ScheduledDate.Add(time.Hour)
	assert.Nil(t, item.ScheduledDate)
	assert.Equal(t, now, date)
}

func TestCheckInvariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*common.Item)
		valid  bool
	}{
		{"draft", func(i *common.Item) {}, true},
		{"scheduled without date", func(i *common.Item) { i.Status = common.StatusScheduled }, false},
		{"published with date", func(i *common.Item) { i.Status = common.StatusPublished; i.ScheduledDate = &now }, true},
		{"reason outside draft", func(i *common.Item) {
			i.Status = common.StatusReview
			i.RejectionReason = common.Ptr("x")
			i.RejectedAt = &now
		}, false},
		{"reason without rejectedAt", func(i *common.Item) { i.RejectionReason = common.Ptr("x") }, false},
		{"rejectedAt without reason", func(i *common.Item) { i.RejectedAt = &now }, false},
		{"negative order", func(i *common.Item) { i.Order = -1 }, false},
		{"bad kind", func(i *common.Item) { i.Kind = "TWEET" }, false},
		{"bad status", func(i *common.Item) { i.Status = "ARCHIVED" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := draftItem()
			tt.mutate(&item)
			err := CheckInvariants(item)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, common.IsValidation(err), "got %v", err)
			}
		})
	}
}
