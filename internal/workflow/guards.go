package workflow

import (
	"contentflow/internal/common"
)

type edge struct {
	from common.Status
	to   common.Status
}

var edges = map[common.Transition]edge{
	common.TransitionSubmit:   {common.StatusDraft, common.StatusReview},
	common.TransitionApprove:  {common.StatusReview, common.StatusApproved},
	common.TransitionReject:   {common.StatusReview, common.StatusDraft},
	common.TransitionSchedule: {common.StatusApproved, common.StatusScheduled},
	common.TransitionPublish:  {common.StatusScheduled, common.StatusPublished},
	common.TransitionRevert:   {common.StatusScheduled, common.StatusApproved},
}

// transitionOrder fixes the order Allowed lists transitions in.
var transitionOrder = []common.Transition{
	common.TransitionSubmit,
	common.TransitionApprove,
	common.TransitionReject,
	common.TransitionSchedule,
	common.TransitionPublish,
	common.TransitionRevert,
}

// guards is the one table both the client preview and the server consult.
var guards = map[common.Role]map[common.Transition]bool{
	common.RoleContentCreator: {
		common.TransitionSubmit: true,
	},
	common.RoleManager: allTransitions(),
	common.RoleAdmin:   allTransitions(),
	common.RoleUser:    {},
}

func allTransitions() map[common.Transition]bool {
	m := make(map[common.Transition]bool, len(transitionOrder))
	for _, t := range transitionOrder {
		m[t] = true
	}
	return m
}

// Can reports whether role may fire transition t on any item.
func Can(role common.Role, t common.Transition) bool {
	return guards[role][t]
}

// Allowed lists the transitions role may fire.
func Allowed(role common.Role) []common.Transition {
	var out []common.Transition
	for _, t := range transitionOrder {
		if guards[role][t] {
			out = append(out, t)
		}
	}
	return out
}

// Available lists the transitions actor may fire on item from its current status.
func Available(actor common.Actor, item common.Item) []common.Transition {
	var out []common.Transition
	for _, t := range Allowed(actor.Role) {
		if edges[t].from == item.Status {
			out = append(out, t)
		}
	}
	return out
}

// Target returns the status t leads to.
func Target(t common.Transition) (common.Status, bool) {
	e, ok := edges[t]
	return e.to, ok
}

func CanCreate(role common.Role) bool {
	switch role {
	case common.RoleAdmin, common.RoleManager, common.RoleContentCreator:
		return true
	}
	return false
}

// CanEdit covers caption and schedule edits. Creators may only touch their own drafts.
func CanEdit(actor common.Actor, item common.Item) bool {
	switch actor.Role {
	case common.RoleAdmin, common.RoleManager:
		return true
	case common.RoleContentCreator:
		return item.OwnerID == actor.UserID && item.Status == common.StatusDraft
	}
	return false
}

func CanDelete(actor common.Actor, item common.Item) bool {
	switch actor.Role {
	case common.RoleAdmin, common.RoleManager:
		return true
	case common.RoleContentCreator:
		return item.OwnerID == actor.UserID
	}
	return false
}

func CanReorder(role common.Role) bool {
	return CanCreate(role)
}

// CanView gates every read of the workflow: polling, fetching and watching a scope.
// USER has no access to it at all.
func CanView(role common.Role) bool {
	return CanCreate(role)
}

func denied(role common.Role, action string) error {
	return &common.PermissionError{Role: role, Action: action}
}

// CheckCreate, CheckEdit, CheckDelete, CheckReorder and CheckView wrap the predicates as typed errors.
func CheckCreate(actor common.Actor) error {
	if !CanCreate(actor.Role) {
		return denied(actor.Role, "create items")
	}
	return nil
}

func CheckEdit(actor common.Actor, item common.Item) error {
	if !CanEdit(actor, item) {
		return denied(actor.Role, "edit item "+item.ID)
	}
	return nil
}

func CheckDelete(actor common.Actor, item common.Item) error {
	if !CanDelete(actor, item) {
		return denied(actor.Role, "delete item "+item.ID)
	}
	return nil
}

func CheckReorder(actor common.Actor) error {
	if !CanReorder(actor.Role) {
		return denied(actor.Role, "reorder items")
	}
	return nil
}

func CheckView(actor common.Actor) error {
	if !CanView(actor.Role) {
		return denied(actor.Role, "view workflow items")
	}
	return nil
}
