package item

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"contentflow/internal/common"
	"contentflow/internal/logger"
	"contentflow/internal/ordering"
	"contentflow/internal/workflow"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks contentflow/internal/item ItemService,MediaStore

// MediaStore is the part of the media backend the item service needs.
type MediaStore interface {
	Stat(ctx context.Context, mediaRef string) (*common.MediaFile, error)
	Delete(ctx context.Context, mediaRef string) error
}

type Notifier interface {
	NotifyAsync(event common.ChangeEvent)
}

type CreateInput struct {
	Scope    string
	MediaRef string
	Caption  string
	Kind     common.Kind
}

// PatchInput carries the optional parts of a PATCH. Status is never taken from the client.
type PatchInput struct {
	Caption            *string
	ScheduledDate      *time.Time
	ClearScheduledDate bool
	Transition         common.Transition
	RejectionReason    string
	ExpectedUpdatedAt  *int64
}

func (in PatchInput) editsFields() bool {
	return in.Caption != nil || in.ScheduledDate != nil || in.ClearScheduledDate
}

type DeleteResult struct {
	ID           string `json:"id"`
	MediaDeleted bool   `json:"mediaDeleted"`
}

type ReorderResult struct {
	Scope string              `json:"scope"`
	Items []ordering.Position `json:"items"`
}

type ItemService interface {
	Create(ctx context.Context, actor common.Actor, in CreateInput) (common.Item, error)
	Get(ctx context.Context, actor common.Actor, id string) (common.Item, error)
	Poll(ctx context.Context, actor common.Actor, scope string, since int64) (common.PollResponse, error)
	Patch(ctx context.Context, actor common.Actor, id string, in PatchInput) (common.Item, error)
	Reorder(ctx context.Context, actor common.Actor, scope string, batch []ordering.Position) (ReorderResult, error)
	Delete(ctx context.Context, actor common.Actor, id string, cascade bool) (DeleteResult, error)
}

type Service struct {
	repo      Repository
	media     MediaStore
	notifier  Notifier
	clock     common.Clock
	retention time.Duration

	janitorStarted atomic.Bool
}

var _ ItemService = (*Service)(nil)

// NewService wires the item service. media may be nil, in which case mediaRefs are not
// checked on create and cascade deletes report mediaDeleted=false.
func NewService(repo Repository, media MediaStore, notifier Notifier, clock common.Clock, retention time.Duration) *Service {
	if clock == nil {
		clock = common.SystemClock{}
	}
	return &Service{
		repo:      repo,
		media:     media,
		notifier:  notifier,
		clock:     clock,
		retention: retention,
	}
}

func (s *Service) publish(action common.ChangeAction, it common.Item, actor common.Actor) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyAsync(common.ChangeEvent{
		Action: action,
		ItemID: it.ID,
		Scope:  it.Scope,
		At:     it.UpdatedAt,
		Actor:  actor,
	})
}

func (s *Service) Create(ctx context.Context, actor common.Actor, in CreateInput) (common.Item, error) {
	if err := workflow.CheckCreate(actor); err != nil {
		return common.Item{}, err
	}
	if err := common.ValidateScope(in.Scope); err != nil {
		return common.Item{}, err
	}
	if err := common.ValidateCaption(in.Caption); err != nil {
		return common.Item{}, err
	}
	if !in.Kind.IsValid() {
		return common.Item{}, common.NewValidationError("kind", "must be one of POST, REEL, STORY")
	}
	in.MediaRef = strings.TrimSpace(in.MediaRef)
	if in.MediaRef == "" {
		return common.Item{}, common.NewValidationError("mediaRef", "is required")
	}
	if err := s.checkMedia(ctx, in.MediaRef, in.Kind); err != nil {
		return common.Item{}, err
	}

	created, err := s.repo.Create(ctx, common.Item{
		ID:       uuid.NewString(),
		OwnerID:  actor.UserID,
		Scope:    in.Scope,
		MediaRef: in.MediaRef,
		Caption:  in.Caption,
		Kind:     in.Kind,
		Status:   common.StatusDraft,
	})
	if err != nil {
		return common.Item{}, fmt.Errorf("create item: %w", err)
	}

	s.publish(common.ActionCreate, created, actor)
	return created, nil
}

func (s *Service) checkMedia(ctx context.Context, ref string, kind common.Kind) error {
	if s.media == nil {
		return nil
	}
	file, err := s.media.Stat(ctx, ref)
	if common.IsNotFound(err) {
		return common.NewValidationError("mediaRef", "no media stored under %s", ref)
	}
	if err != nil {
		return &common.TransportError{Op: "media stat", Err: err}
	}
	if !kind.AcceptsFileType(file.FileType) {
		return common.NewValidationError("kind", "%s cannot use %s media", kind, file.FileType)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, actor common.Actor, id string) (common.Item, error) {
	if err := workflow.CheckView(actor); err != nil {
		return common.Item{}, err
	}
	return s.repo.ByID(ctx, id)
}

// neverWritten is the timestamp handed out for a scope with no writes yet. Any first write
// lands after it, so a poller holding it sees that write as a delta.
const neverWritten int64 = 1

// Poll answers GET /items. since is epoch milliseconds. Zero gets a full snapshot, and so does
// a since older than the scope's purge mark, because tombstones after it may be gone.
func (s *Service) Poll(ctx context.Context, actor common.Actor, scope string, since int64) (common.PollResponse, error) {
	if err := workflow.CheckView(actor); err != nil {
		return common.PollResponse{}, err
	}
	if err := common.ValidateScope(scope); err != nil {
		return common.PollResponse{}, err
	}
	if since < 0 {
		return common.PollResponse{}, common.NewValidationError("lastCheckTimestamp", "must be >= 0")
	}

	var d Delta
	if since > 0 {
		var err error
		d, err = s.repo.ChangedSince(ctx, scope, common.FromUnixMilli(since))
		if err != nil {
			return common.PollResponse{}, fmt.Errorf("load changes: %w", err)
		}
		if !common.FromUnixMilli(since).Before(d.PurgedThrough) {
			return delta(d, since), nil
		}
	}

	d, err := s.repo.ChangedSince(ctx, scope, time.Time{})
	if err != nil {
		return common.PollResponse{}, fmt.Errorf("load scope: %w", err)
	}
	ts := since
	for _, at := range []time.Time{d.Latest, d.LastWriteAt} {
		if !at.IsZero() && common.UnixMilli(at) > ts {
			ts = common.UnixMilli(at)
		}
	}
	if ts == 0 {
		ts = neverWritten
	}
	return common.PollResponse{
		HasChanges: true,
		Items:      nonNil(d.Items),
		DeletedIDs: []string{},
		Timestamp:  ts,
		Snapshot:   true,
	}, nil
}

func delta(d Delta, since int64) common.PollResponse {
	resp := common.PollResponse{
		Items:      nonNil(d.Items),
		DeletedIDs: d.DeletedIDs,
		Timestamp:  since,
	}
	if resp.DeletedIDs == nil {
		resp.DeletedIDs = []string{}
	}
	if len(d.Items) > 0 || len(d.DeletedIDs) > 0 {
		resp.HasChanges = true
		resp.Timestamp = common.UnixMilli(d.Latest)
	}
	return resp
}

func nonNil(items []common.Item) []common.Item {
	if items == nil {
		return []common.Item{}
	}
	return items
}

func (s *Service) Patch(ctx context.Context, actor common.Actor, id string, in PatchInput) (common.Item, error) {
	if !in.editsFields() && in.Transition == "" {
		return common.Item{}, common.NewValidationError("", "nothing to update")
	}
	if in.Caption != nil {
		if err := common.ValidateCaption(*in.Caption); err != nil {
			return common.Item{}, err
		}
	}
	if in.ClearScheduledDate && in.ScheduledDate != nil {
		return common.Item{}, common.NewValidationError("scheduledDate", "cannot both set and clear")
	}

	updated, err := s.repo.Update(ctx, id, func(current common.Item) (common.Item, error) {
		return applyPatch(current, actor, in, s.clock.Now())
	})
	if err != nil {
		return common.Item{}, err
	}

	s.publish(common.ActionUpdate, updated, actor)
	return updated, nil
}

// applyPatch runs against the locked current row, so the guard sees the committed status.
func applyPatch(current common.Item, actor common.Actor, in PatchInput, now time.Time) (common.Item, error) {
	if in.ExpectedUpdatedAt != nil && *in.ExpectedUpdatedAt != common.UnixMilli(current.UpdatedAt) {
		return current, common.NewConflictError("item %s changed since %d", current.ID, *in.ExpectedUpdatedAt)
	}

	next := current.Clone()
	if in.editsFields() {
		if err := workflow.CheckEdit(actor, current); err != nil {
			return current, err
		}
		if current.Status == common.StatusPublished {
			return current, common.NewValidationError("", "published items cannot be edited")
		}
		if in.Caption != nil {
			next.Caption = *in.Caption
		}
		if in.ScheduledDate != nil {
			next.ScheduledDate = common.Ptr(in.ScheduledDate.UTC())
		}
		if in.ClearScheduledDate {
			if current.Status.RequiresSchedule() {
				return current, common.NewValidationError("scheduledDate", "cannot be cleared while %s", current.Status)
			}
			next.ScheduledDate = nil
		}
	}

	if in.Transition != "" {
		var err error
		next, err = workflow.Apply(next, workflow.Request{
			Transition:    in.Transition,
			Actor:         actor,
			Reason:        in.RejectionReason,
			ScheduledDate: in.ScheduledDate,
			At:            now,
		})
		if err != nil {
			return current, err
		}
	}

	if err := workflow.CheckInvariants(next); err != nil {
		return current, err
	}
	return next, nil
}

func (s *Service) Reorder(ctx context.Context, actor common.Actor, scope string, batch []ordering.Position) (ReorderResult, error) {
	if err := workflow.CheckReorder(actor); err != nil {
		return ReorderResult{}, err
	}
	if err := common.ValidateScope(scope); err != nil {
		return ReorderResult{}, err
	}
	if len(batch) == 0 {
		return ReorderResult{}, common.NewValidationError("items", "is required")
	}

	res, err := s.repo.CommitOrder(ctx, scope, batch)
	if err != nil {
		return ReorderResult{}, err
	}

	moved := make(map[string]bool, len(res.Moved))
	for _, id := range res.Moved {
		moved[id] = true
	}
	for _, it := range res.Items {
		if moved[it.ID] {
			s.publish(common.ActionUpdate, it, actor)
		}
	}
	return ReorderResult{Scope: scope, Items: ordering.Positions(res.Items)}, nil
}

// Delete removes the record first. With cascade the media is deleted afterwards; a media
// failure leaves the item deleted and is reported as mediaDeleted=false.
func (s *Service) Delete(ctx context.Context, actor common.Actor, id string, cascade bool) (DeleteResult, error) {
	removed, err := s.repo.Delete(ctx, id, func(current common.Item) error {
		return workflow.CheckDelete(actor, current)
	})
	if err != nil {
		return DeleteResult{}, err
	}
	s.publish(common.ActionDelete, removed, actor)

	res := DeleteResult{ID: id}
	if cascade && s.media != nil {
		if err := s.media.Delete(ctx, removed.MediaRef); err != nil {
			logger.WithContext(ctx).WithError(err).
				WithField("media_ref", removed.MediaRef).
				Warn("item deleted but media cascade failed")
		} else {
			res.MediaDeleted = true
		}
	}
	return res, nil
}

// PurgeTombstones drops tombstones older than the retention window.
func (s *Service) PurgeTombstones(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	return s.repo.PurgeTombstones(ctx, s.clock.Now().Add(-s.retention))
}

// StartJanitor purges tombstones every interval until ctx is done.
func (s *Service) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || !s.janitorStarted.CompareAndSwap(false, true) {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeTombstones(ctx)
			if err != nil {
				logger.App().WithError(err).Warn("tombstone purge failed")
				continue
			}
			if n > 0 {
				logger.App().WithField("purged", n).Info("purged tombstones")
			}
		}
	}
}
