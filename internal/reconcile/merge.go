// Package reconcile folds authoritative change batches into client-held state without
// losing client-only data.
package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"contentflow/internal/common"
	"contentflow/internal/syncchannel"
)

// Preview is a locally materialized copy of an item's media. It is never sent to the server.
type Preview struct {
	MediaRef    string
	ContentType string
	Data        []byte
	FetchedAt   time.Time
}

type LocalItem struct {
	common.Item
	Preview *Preview
}

// State is the client's view of one scope, keyed by item id.
type State map[string]LocalItem

// Merge returns a new State with b applied. Authoritative fields always come from b; a
// Preview survives as long as the item still points at the same media. Changed items older
// than the local copy are ignored, so Merge(Merge(s, b), b) equals Merge(s, b) and a
// re-delivered batch never moves state backwards.
func Merge(local State, b syncchannel.ChangeBatch) State {
	out := make(State, len(local)+len(b.Changed))
	for id, li := range local {
		out[id] = li
	}

	if b.Snapshot {
		present := make(map[string]struct{}, len(b.Changed))
		for _, it := range b.Changed {
			present[it.ID] = struct{}{}
		}
		for id, li := range out {
			if _, ok := present[id]; ok {
				continue
			}
			// Local rows newer than the snapshot came from a later batch.
			if !b.AsOf.IsZero() && li.UpdatedAt.After(b.AsOf) {
				continue
			}
			delete(out, id)
		}
	}

	for _, it := range b.Changed {
		prev, ok := out[it.ID]
		if ok && prev.UpdatedAt.After(it.UpdatedAt) {
			continue
		}
		next := LocalItem{Item: it.Clone()}
		if ok && prev.Preview != nil && prev.Preview.MediaRef == it.MediaRef {
			next.Preview = prev.Preview
		}
		out[it.ID] = next
	}

	for _, id := range b.DeletedIDs {
		delete(out, id)
	}
	return out
}

// Ordered lists the state by order, then createdAt, then id.
func Ordered(s State) []LocalItem {
	out := make([]LocalItem, 0, len(s))
	for _, li := range s {
		out = append(out, li)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// Items strips the client-only fields.
func Items(s State) []common.Item {
	ordered := Ordered(s)
	out := make([]common.Item, len(ordered))
	for i, li := range ordered {
		out[i] = li.Item
	}
	return out
}

type PreviewLoader interface {
	LoadPreview(ctx context.Context, mediaRef string) (*Preview, error)
}

const previewConcurrency = 4

// FillPreviews loads the missing previews and returns a new State. Items whose preview
// failed to load are left without one; the first such error is returned.
func FillPreviews(ctx context.Context, s State, loader PreviewLoader) (State, error) {
	out := make(State, len(s))
	type job struct{ id, ref string }
	var missing []job
	for id, li := range s {
		out[id] = li
		if li.Preview == nil && li.MediaRef != "" {
			missing = append(missing, job{id: id, ref: li.MediaRef})
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(previewConcurrency)
	for _, j := range missing {
		id, ref := j.id, j.ref
		g.Go(func() error {
			p, err := loader.LoadPreview(ctx, ref)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			li := out[id]
			li.Preview = p
			out[id] = li
			return nil
		})
	}
	err := g.Wait()
	return out, err
}
