package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"contentflow/internal/common"
)

func TestGuardTable(t *testing.T) {
	all := []common.Transition{
		common.TransitionSubmit, common.TransitionApprove, common.TransitionReject,
		common.TransitionSchedule, common.TransitionPublish, common.TransitionRevert,
	}

	assert.Equal(t, []common.Transition{common.TransitionSubmit}, Allowed(common.RoleContentCreator))
	assert.Equal(t, all, Allowed(common.RoleManager))
	assert.Equal(t, all, Allowed(common.RoleAdmin))
	assert.Empty(t, Allowed(common.RoleUser))
	assert.Empty(t, Allowed("GUEST"))
}

// Every (role, transition, status) combination either succeeds or fails with exactly the
// error the guard table and graph predict.
func TestGuardEnforcement_Exhaustive(t *testing.T) {
	roles := []common.Role{common.RoleAdmin, common.RoleManager, common.RoleContentCreator, common.RoleUser}
	statuses := []common.Status{common.StatusDraft, common.StatusReview, common.StatusApproved, common.StatusScheduled, common.StatusPublished}

	for _, role := range roles {
		for _, tr := range transitionOrder {
			for _, st := range statuses {
				item := draftItem()
				item.Status = st
				if st.RequiresSchedule() {
					item.ScheduledDate = &now
				}
				_, err := Apply(item, Request{Transition: tr, Actor: common.Actor{UserID: "x", Role: role}, Reason: "r", ScheduledDate: &now})

				switch {
				case !Can(role, tr):
					assert.True(t, common.IsPermission(err), "%s %s from %s: %v", role, tr, st, err)
				case edges[tr].from != st:
					assert.True(t, common.IsConflict(err), "%s %s from %s: %v", role, tr, st, err)
				default:
					assert.NoError(t, err, "%s %s from %s", role, tr, st)
				}
			}
		}
	}
}

func TestEditDeleteReorderGuards(t *testing.T) {
	own := draftItem()
	other := draftItem()
	other.OwnerID = "someone-else"
	submitted := draftItem()
	submitted.Status = common.StatusReview

	assert.True(t, CanEdit(creator, own))
	assert.False(t, CanEdit(creator, other))
	assert.False(t, CanEdit(creator, submitted))
	assert.True(t, CanEdit(manager, other))
	assert.False(t, CanEdit(viewer, own))

	assert.True(t, CanDelete(creator, own))
	assert.True(t, CanDelete(creator, submitted))
	assert.False(t, CanDelete(creator, other))
	assert.True(t, CanDelete(admin, other))
	assert.False(t, CanDelete(viewer, own))

	assert.True(t, CanReorder(common.RoleContentCreator))
	assert.False(t, CanReorder(common.RoleUser))
	assert.False(t, CanCreate(common.RoleUser))

	assert.True(t, common.IsPermission(CheckEdit(viewer, own)))
	assert.NoError(t, CheckCreate(manager))
	assert.True(t, common.IsPermission(CheckReorder(viewer)))
	assert.True(t, common.IsPermission(CheckDelete(creator, other)))
}

func TestViewGuard(t *testing.T) {
	for _, role := range []common.Role{common.RoleAdmin, common.RoleManager, common.RoleContentCreator} {
		assert.True(t, CanView(role), role)
		assert.NoError(t, CheckView(common.Actor{UserID: "x", Role: role}))
	}
	assert.False(t, CanView(common.RoleUser))
	assert.False(t, CanView("GUEST"))
	assert.True(t, common.IsPermission(CheckView(viewer)))
}

func TestAvailable(t *testing.T) {
	review := draftItem()
	review.Status = common.StatusReview

	assert.Equal(t, []common.Transition{common.TransitionApprove, common.TransitionReject}, Available(manager, review))
	assert.Empty(t, Available(creator, review))
	assert.Equal(t, []common.Transition{common.TransitionSubmit}, Available(creator, draftItem()))

	to, ok := Target(common.TransitionRevert)
	assert.True(t, ok)
	assert.Equal(t, common.StatusApproved, to)
}
