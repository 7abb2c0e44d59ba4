package workflow

import (
	"fmt"
	"strings"
	"time"

	"contentflow/internal/common"
)

// Request asks the engine to fire one transition.
// ScheduledDate is only read by schedule; when nil the item's current date is used.
type Request struct {
	Transition    common.Transition
	Actor         common.Actor
	Reason        string
	ScheduledDate *time.Time
	At            time.Time
}

// Apply fires req.Transition on item and returns the resulting item. It does not persist.
//
// Checks run in a fixed order: an unknown transition is a ValidationError, a role
// without the guard is a PermissionError, an item not in the edge's source status
// is a ConflictError, and missing inputs are a ValidationError.
func Apply(item common.Item, req Request) (common.Item, error) {
	e, ok := edges[req.Transition]
	if !ok {
		return item, common.NewValidationError("transition", "unknown transition %q", req.Transition)
	}
	if !Can(req.Actor.Role, req.Transition) {
		return item, denied(req.Actor.Role, string(req.Transition))
	}
	if item.Status != e.from {
		return item, common.NewConflictError("cannot %s item %s: status is %s, expected %s",
			req.Transition, item.ID, item.Status, e.from)
	}

	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	next := item.Clone()
	switch req.Transition {
	case common.TransitionSubmit:
		// a resubmitted draft no longer carries the previous rejection
		next.RejectionReason = nil
		next.RejectedAt = nil
		next.RejectedBy = nil
	case common.TransitionReject:
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			return item, common.NewValidationError("rejectionReason", "reject requires a reason")
		}
		next.RejectionReason = common.Ptr(reason)
		next.RejectedAt = common.Ptr(at)
		next.RejectedBy = common.Ptr(req.Actor.UserID)
	case common.TransitionSchedule:
		date := req.ScheduledDate
		if date == nil {
			date = item.ScheduledDate
		}
		if date == nil || date.IsZero() {
			return item, common.NewValidationError("scheduledDate", "schedule requires a scheduledDate")
		}
		next.ScheduledDate = common.Ptr(date.UTC())
	}
	next.Status = e.to

	if err := CheckInvariants(next); err != nil {
		return item, fmt.Errorf("%s produced an invalid item: %w", req.Transition, err)
	}
	return next, nil
}

// CheckInvariants rejects items no sequence of legal operations could produce.
func CheckInvariants(item common.Item) error {
	if !item.Status.IsValid() {
		return common.NewValidationError("status", "unknown status %q", item.Status)
	}
	if !item.Kind.IsValid() {
		return common.NewValidationError("kind", "unknown kind %q", item.Kind)
	}
	if item.Order < 0 {
		return common.NewValidationError("order", "must be >= 0, got %d", item.Order)
	}
	if item.Status.RequiresSchedule() && item.ScheduledDate == nil {
		return common.NewValidationError("scheduledDate", "required while %s", item.Status)
	}
	if item.RejectionReason != nil {
		if item.Status != common.StatusDraft {
			return common.NewValidationError("rejectionReason", "only a rejected draft carries a reason, status is %s", item.Status)
		}
		if item.RejectedAt == nil {
			return common.NewValidationError("rejectedAt", "required with a rejection reason")
		}
	} else if item.RejectedAt != nil || item.RejectedBy != nil {
		return common.NewValidationError("rejectionReason", "rejection metadata without a reason")
	}
	return nil
}
