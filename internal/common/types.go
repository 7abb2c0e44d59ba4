package common

import (
	"time"
)

type Kind string

const (
	KindPost  Kind = "POST"
	KindReel  Kind = "REEL"
	KindStory Kind = "STORY"
)

func (k Kind) IsValid() bool {
	return k == KindPost || k == KindReel || k == KindStory
}

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusReview    Status = "REVIEW"
	StatusApproved  Status = "APPROVED"
	StatusScheduled Status = "SCHEDULED"
	StatusPublished Status = "PUBLISHED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusReview, StatusApproved, StatusScheduled, StatusPublished:
		return true
	}
	return false
}

// RequiresSchedule reports whether items in this status must carry a scheduledDate.
func (s Status) RequiresSchedule() bool {
	return s == StatusScheduled || s == StatusPublished
}

type Transition string

const (
	TransitionSubmit   Transition = "submit"
	TransitionApprove  Transition = "approve"
	TransitionReject   Transition = "reject"
	TransitionSchedule Transition = "schedule"
	TransitionPublish  Transition = "publish"
	TransitionRevert   Transition = "revert"
)

func (t Transition) IsValid() bool {
	switch t {
	case TransitionSubmit, TransitionApprove, TransitionReject, TransitionSchedule, TransitionPublish, TransitionRevert:
		return true
	}
	return false
}

// Item is the staged content unit as seen by every layer above the database.
type Item struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"ownerId"`
	Scope           string     `json:"scope"`
	MediaRef        string     `json:"mediaRef"`
	Caption         string     `json:"caption"`
	Kind            Kind       `json:"kind"`
	Status          Status     `json:"status"`
	ScheduledDate   *time.Time `json:"scheduledDate,omitempty"`
	Order           int        `json:"order"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectedBy      *string    `json:"rejectedBy,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Clone returns a copy that shares no pointers with i.
func (i Item) Clone() Item {
	out := i
	if i.ScheduledDate != nil {
		out.ScheduledDate = Ptr(*i.ScheduledDate)
	}
	if i.RejectionReason != nil {
		out.RejectionReason = Ptr(*i.RejectionReason)
	}
	if i.RejectedAt != nil {
		out.RejectedAt = Ptr(*i.RejectedAt)
	}
	if i.RejectedBy != nil {
		out.RejectedBy = Ptr(*i.RejectedBy)
	}
	return out
}

// Actor is the identity acting on the workflow, as supplied by the token.
type Actor struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// ChangeEvent is emitted after every committed mutation.
type ChangeEvent struct {
	Action ChangeAction
	ItemID string
	Scope  string
	At     time.Time
	Actor  Actor
}

func (e ChangeEvent) Notification() ChangeNotification {
	return ChangeNotification{Action: e.Action, ItemID: e.ItemID}
}

// ChangeNotification is the wire shape of a push channel message.
// Either Type is "connected" or Action/ItemID are set.
type ChangeNotification struct {
	Type   string       `json:"type,omitempty"`
	Action ChangeAction `json:"action,omitempty"`
	ItemID string       `json:"itemId,omitempty"`
}

const NotificationConnected = "connected"

// PollResponse is the body of GET /items. Timestamp is epoch milliseconds.
type PollResponse struct {
	HasChanges bool     `json:"hasChanges"`
	Items      []Item   `json:"items"`
	DeletedIDs []string `json:"deletedIds"`
	Timestamp  int64    `json:"timestamp"`
	Snapshot   bool     `json:"snapshot"`
}

func Ptr[T any](v T) *T {
	return &v
}

// UnixMilli converts t to epoch milliseconds, the unit used for every sync timestamp.
func UnixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func FromUnixMilli(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
