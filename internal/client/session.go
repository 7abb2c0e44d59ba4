package client

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"contentflow/internal/common"
	"contentflow/internal/logger"
	"contentflow/internal/ordering"
	"contentflow/internal/reconcile"
	"contentflow/internal/syncchannel"
	"contentflow/internal/workflow"
)

// Backend is the subset of API a Session needs.
type Backend interface {
	syncchannel.Fetcher
	Create(ctx context.Context, req CreateRequest) (common.Item, error)
	Patch(ctx context.Context, id string, req PatchRequest) (common.Item, error)
	Reorder(ctx context.Context, scope string, batch []ordering.Position) (ReorderAck, error)
	Delete(ctx context.Context, id string, cascade bool) (DeleteAck, error)
}

// Session is one actor's view of one scope. Every mutation is checked against the local
// copy first and reaches local state only once the server has acknowledged it.
type Session struct {
	backend Backend
	actor   common.Actor
	scope   string
	now     func() time.Time

	mu    sync.RWMutex
	state reconcile.State
}

func NewSession(backend Backend, actor common.Actor, scope string) *Session {
	return &Session{
		backend: backend,
		actor:   actor,
		scope:   scope,
		now:     time.Now,
		state:   reconcile.State{},
	}
}

func (s *Session) Scope() string       { return s.scope }
func (s *Session) Actor() common.Actor { return s.actor }

func (s *Session) State() reconcile.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Items() []common.Item {
	return reconcile.Items(s.State())
}

// Item returns the local copy of id.
func (s *Session) Item(id string) (common.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	li, ok := s.state[id]
	return li.Item, ok
}

// Apply folds a batch from a subscription into the local state.
func (s *Session) Apply(b syncchannel.ChangeBatch) reconcile.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = reconcile.Merge(s.state, b)
	return s.state
}

// Refresh replaces the local view with the server's full state of the scope.
func (s *Session) Refresh(ctx context.Context) error {
	resp, err := s.backend.FetchChanges(ctx, s.scope, 0)
	if err != nil {
		return err
	}
	b := syncchannel.BatchFromResponse(resp)
	b.Snapshot = true
	s.Apply(b)
	return nil
}

// Run applies batches from sub until it ends and returns its terminal error.
func (s *Session) Run(ctx context.Context, sub *syncchannel.Subscription, onBatch func(reconcile.State)) error {
	defer sub.Unsubscribe()
	for {
		select {
		case b, ok := <-sub.Batches():
			if !ok {
				return sub.Err()
			}
			st := s.Apply(b)
			if onBatch != nil {
				onBatch(st)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// FillPreviews loads previews the local state lacks. Items that changed media while the
// load was in flight keep no preview.
func (s *Session) FillPreviews(ctx context.Context, loader reconcile.PreviewLoader) error {
	filled, err := reconcile.FillPreviews(ctx, s.State(), loader)

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(reconcile.State, len(s.state))
	for id, li := range s.state {
		if f, ok := filled[id]; ok && li.Preview == nil && f.Preview != nil && f.Preview.MediaRef == li.MediaRef {
			li.Preview = f.Preview
		}
		next[id] = li
	}
	s.state = next
	return err
}

// planned is a server call built from a particular local state.
type planned func(ctx context.Context) error

// mutate runs plan against local state and sends the call it builds. A conflict from either
// the local preview or the server forces a refetch and one re-plan on fresh state; an ambiguous
// transport failure refetches before the error is returned.
func (s *Session) mutate(ctx context.Context, op string, plan func(reconcile.State) (planned, error)) error {
	log := logger.WithContext(ctx).WithFields(logrus.Fields{"scope": s.scope, "op": op})

	for attempt := 0; ; attempt++ {
		call, err := plan(s.State())
		if err == nil {
			err = call(ctx)
		}
		switch {
		case err == nil:
			return nil
		case common.IsConflict(err) && attempt == 0:
			log.WithError(err).Info("stale local state, refetching")
			if rerr := s.Refresh(ctx); rerr != nil {
				return rerr
			}
			continue
		case common.IsTransport(err):
			if rerr := s.Refresh(ctx); rerr != nil {
				log.WithError(rerr).Warn("refetch after transport failure failed")
			}
			return err
		default:
			return err
		}
	}
}

func (s *Session) adopt(it common.Item) {
	s.Apply(syncchannel.ChangeBatch{Changed: []common.Item{it}})
}

func lookup(st reconcile.State, id string) (common.Item, error) {
	li, ok := st[id]
	if !ok {
		// unknown locally: the view may predate its creation
		return common.Item{}, common.NewConflictError("item %s is not in the local view", id)
	}
	return li.Item, nil
}

type CreateOptions struct {
	MediaRef string
	Caption  string
	Kind     common.Kind
}

func (s *Session) Create(ctx context.Context, opts CreateOptions) (common.Item, error) {
	var created common.Item
	err := s.mutate(ctx, "create", func(reconcile.State) (planned, error) {
		if err := workflow.CheckCreate(s.actor); err != nil {
			return nil, err
		}
		if !opts.Kind.IsValid() {
			return nil, common.NewValidationError("kind", "unknown kind %q", opts.Kind)
		}
		if err := common.ValidateCaption(opts.Caption); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			it, err := s.backend.Create(ctx, CreateRequest{Scope: s.scope, MediaRef: opts.MediaRef, Caption: opts.Caption, Kind: opts.Kind})
			if err != nil {
				return err
			}
			s.adopt(it)
			created = it
			return nil
		}, nil
	})
	return created, err
}

type TransitionOptions struct {
	Reason        string
	ScheduledDate *time.Time
}

// Transition fires t on item id after previewing it through the workflow engine.
func (s *Session) Transition(ctx context.Context, id string, t common.Transition, opts TransitionOptions) (common.Item, error) {
	var result common.Item
	err := s.mutate(ctx, string(t), func(st reconcile.State) (planned, error) {
		current, err := lookup(st, id)
		if err != nil {
			return nil, err
		}
		if _, err := workflow.Apply(current, workflow.Request{
			Transition:    t,
			Actor:         s.actor,
			Reason:        opts.Reason,
			ScheduledDate: opts.ScheduledDate,
			At:            s.now(),
		}); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			it, err := s.backend.Patch(ctx, id, PatchRequest{
				Transition:      t,
				RejectionReason: opts.Reason,
				ScheduledDate:   opts.ScheduledDate,
			})
			if err != nil {
				return err
			}
			s.adopt(it)
			result = it
			return nil
		}, nil
	})
	return result, err
}

type EditOptions struct {
	Caption            *string
	ScheduledDate      *time.Time
	ClearScheduledDate bool
}

// Edit changes caption or schedule. The local copy's updatedAt travels as the concurrency
// token, so an edit based on a stale copy comes back as a conflict and is re-planned.
func (s *Session) Edit(ctx context.Context, id string, opts EditOptions) (common.Item, error) {
	var result common.Item
	err := s.mutate(ctx, "edit", func(st reconcile.State) (planned, error) {
		current, err := lookup(st, id)
		if err != nil {
			return nil, err
		}
		if opts.Caption == nil && opts.ScheduledDate == nil && !opts.ClearScheduledDate {
			return nil, common.NewValidationError("", "nothing to update")
		}
		if opts.ClearScheduledDate && opts.ScheduledDate != nil {
			return nil, common.NewValidationError("scheduledDate", "cannot both set and clear")
		}
		if err := workflow.CheckEdit(s.actor, current); err != nil {
			return nil, err
		}
		if current.Status == common.StatusPublished {
			return nil, common.NewValidationError("", "published items cannot be edited")
		}
		if opts.Caption != nil {
			if err := common.ValidateCaption(*opts.Caption); err != nil {
				return nil, err
			}
		}
		if opts.ClearScheduledDate && current.Status.RequiresSchedule() {
			return nil, common.NewValidationError("scheduledDate", "a %s item must keep its scheduledDate", current.Status)
		}
		expected := common.UnixMilli(current.UpdatedAt)
		return func(ctx context.Context) error {
			it, err := s.backend.Patch(ctx, id, PatchRequest{
				Caption:            opts.Caption,
				ScheduledDate:      opts.ScheduledDate,
				ClearScheduledDate: opts.ClearScheduledDate,
				ExpectedUpdatedAt:  &expected,
			})
			if err != nil {
				return err
			}
			s.adopt(it)
			result = it
			return nil
		}, nil
	})
	return result, err
}

// Move moves the item at index from to index to in the scope's order. A re-plan after a
// conflict moves the same item, found again by id, and fails if it is gone.
func (s *Session) Move(ctx context.Context, from, to int) error {
	var movedID string
	return s.mutate(ctx, "reorder", func(st reconcile.State) (planned, error) {
		if err := workflow.CheckReorder(s.actor); err != nil {
			return nil, err
		}
		items := reconcile.Items(st)
		src, dst := from, to
		if movedID == "" {
			if src >= 0 && src < len(items) {
				movedID = items[src].ID
			}
		} else {
			src = indexOf(items, movedID)
			if src < 0 {
				return nil, common.NewConflictError("item %s is no longer in scope %s", movedID, s.scope)
			}
			if dst >= len(items) {
				dst = len(items) - 1
			}
		}
		moved, err := ordering.Reorder(items, src, dst)
		if err != nil {
			return nil, err
		}
		batch := ordering.Positions(moved)
		return func(ctx context.Context) error {
			ack, err := s.backend.Reorder(ctx, s.scope, batch)
			if err != nil {
				return err
			}
			s.applyOrder(ack.Items)
			return nil
		}, nil
	})
}

func indexOf(items []common.Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// applyOrder writes acknowledged positions onto the local copies. updatedAt is left alone;
// the change notification brings the server's value.
func (s *Session) applyOrder(batch []ordering.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(reconcile.State, len(s.state))
	for id, li := range s.state {
		next[id] = li
	}
	for _, p := range batch {
		if li, ok := next[p.ID]; ok {
			li.Item = li.Item.Clone()
			li.Order = p.Order
			next[p.ID] = li
		}
	}
	s.state = next
}

// Delete removes id. With cascade the media is deleted from the media store as well.
func (s *Session) Delete(ctx context.Context, id string, cascade bool) (DeleteAck, error) {
	var ack DeleteAck
	err := s.mutate(ctx, "delete", func(st reconcile.State) (planned, error) {
		current, err := lookup(st, id)
		if err != nil {
			return nil, err
		}
		if err := workflow.CheckDelete(s.actor, current); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			res, err := s.backend.Delete(ctx, id, cascade)
			if err != nil {
				return err
			}
			s.Apply(syncchannel.ChangeBatch{DeletedIDs: []string{res.ID}})
			ack = res
			return nil
		}, nil
	})
	return ack, err
}
