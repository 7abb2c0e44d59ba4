package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"contentflow/internal/common"
	"contentflow/internal/dbmysql"
	"contentflow/internal/ordering"
)

// Delta is what changed in a scope after a given instant.
type Delta struct {
	Items      []common.Item
	DeletedIDs []string
	// Latest is the highest updatedAt among Items and tombstones, zero when nothing changed.
	Latest time.Time
	// LastWriteAt and PurgedThrough come from the scope row; both are zero for a scope
	// that was never written or never purged.
	LastWriteAt   time.Time
	PurgedThrough time.Time
}

// OrderResult is the scope after a reorder commit. Moved lists the ids whose order changed.
type OrderResult struct {
	Items []common.Item
	Moved []string
}

// MutateFunc receives the locked current row and returns the row to store.
type MutateFunc func(current common.Item) (common.Item, error)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks contentflow/internal/item Repository

// Repository persists items. Every write takes the scope's row lock, so updatedAt values in a
// scope are strictly increasing in commit order.
type Repository interface {
	Create(ctx context.Context, it common.Item) (common.Item, error)
	ByID(ctx context.Context, id string) (common.Item, error)
	ChangedSince(ctx context.Context, scope string, since time.Time) (Delta, error)
	Update(ctx context.Context, id string, mutate MutateFunc) (common.Item, error)
	CommitOrder(ctx context.Context, scope string, batch []ordering.Position) (OrderResult, error)
	Delete(ctx context.Context, id string, check func(current common.Item) error) (common.Item, error)
	PurgeTombstones(ctx context.Context, before time.Time) (int64, error)
}

type ItemRepository struct {
	db    *gorm.DB
	clock common.Clock
}

func NewItemRepository(db *gorm.DB, clock common.Clock) *ItemRepository {
	if clock == nil {
		clock = common.SystemClock{}
	}
	return &ItemRepository{db: db, clock: clock}
}

func notFound(id string) error {
	return &common.NotFoundError{Kind: "item", ID: id}
}

// lockScope takes the scope row lock and returns the timestamp this write commits with.
func (r *ItemRepository) lockScope(tx *gorm.DB, scope string) (time.Time, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&dbmysql.ScopeVersion{Scope: scope}).Error; err != nil {
		return time.Time{}, fmt.Errorf("ensure scope %s: %w", scope, err)
	}

	var sv dbmysql.ScopeVersion
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("scope = ?", scope).
		First(&sv).Error; err != nil {
		return time.Time{}, fmt.Errorf("lock scope %s: %w", scope, err)
	}
	var last time.Time
	if sv.LastWriteAt != nil {
		last = *sv.LastWriteAt
	}
	return common.NextTimestamp(r.clock.Now(), last), nil
}

func bumpScope(tx *gorm.DB, scope string, at time.Time) error {
	err := tx.Model(&dbmysql.ScopeVersion{}).
		Where("scope = ?", scope).
		Updates(map[string]interface{}{
			"version":       gorm.Expr("version + 1"),
			"last_write_at": at,
		}).Error
	if err != nil {
		return fmt.Errorf("bump scope %s: %w", scope, err)
	}
	return nil
}

func lockedScopeRows(tx *gorm.DB, scope string) ([]dbmysql.Item, error) {
	var rows []dbmysql.Item
	err := tx.Where("scope = ?", scope).
		Order("sort_order ASC, created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// Create stores it at the end of its scope. ID, Order, CreatedAt and UpdatedAt are assigned here.
func (r *ItemRepository) Create(ctx context.Context, it common.Item) (common.Item, error) {
	var out common.Item
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		at, err := r.lockScope(tx, it.Scope)
		if err != nil {
			return err
		}

		var maxOrder sql.NullInt64
		if err := tx.Model(&dbmysql.Item{}).
			Where("scope = ?", it.Scope).
			Select("MAX(sort_order)").
			Row().Scan(&maxOrder); err != nil {
			return fmt.Errorf("max order: %w", err)
		}

		var last *int
		if maxOrder.Valid {
			last = common.Ptr(int(maxOrder.Int64))
		}
		it.Order = ordering.NextOrder(last)
		it.CreatedAt = at
		it.UpdatedAt = at
		row := dbmysql.FromCommon(it)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		if err := bumpScope(tx, it.Scope, at); err != nil {
			return err
		}
		out = row.ToCommon()
		return nil
	})
	return out, err
}

func (r *ItemRepository) ByID(ctx context.Context, id string) (common.Item, error) {
	var row dbmysql.Item
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.Item{}, notFound(id)
	}
	if err != nil {
		return common.Item{}, err
	}
	return row.ToCommon(), nil
}

// ChangedSince returns live rows and tombstones with updatedAt after since; a zero since
// returns the whole scope. Items and tombstones come from one statement so Latest never runs
// ahead of what the caller received. The scope row is read first for the same reason.
func (r *ItemRepository) ChangedSince(ctx context.Context, scope string, since time.Time) (Delta, error) {
	var d Delta

	var svs []dbmysql.ScopeVersion
	if err := r.db.WithContext(ctx).Where("scope = ?", scope).Limit(1).Find(&svs).Error; err != nil {
		return d, fmt.Errorf("read scope %s: %w", scope, err)
	}
	if len(svs) == 1 {
		if svs[0].LastWriteAt != nil {
			d.LastWriteAt = svs[0].LastWriteAt.UTC()
		}
		if svs[0].PurgedThrough != nil {
			d.PurgedThrough = svs[0].PurgedThrough.UTC()
		}
	}

	q := r.db.WithContext(ctx).Unscoped().Where("scope = ?", scope)
	if !since.IsZero() {
		q = q.Where("updated_at > ?", since)
	}
	var rows []dbmysql.Item
	if err := q.Order("sort_order ASC, created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return d, err
	}

	for _, row := range rows {
		if row.UpdatedAt.After(d.Latest) {
			d.Latest = row.UpdatedAt.UTC()
		}
		if row.DeletedAt.Valid {
			d.DeletedIDs = append(d.DeletedIDs, row.ID)
			continue
		}
		d.Items = append(d.Items, row.ToCommon())
	}
	return d, nil
}

// Update runs mutate on the current row while holding the scope lock.
// Scope, ID, Order and CreatedAt cannot be changed through it.
func (r *ItemRepository) Update(ctx context.Context, id string, mutate MutateFunc) (common.Item, error) {
	current, err := r.ByID(ctx, id)
	if err != nil {
		return common.Item{}, err
	}

	var out common.Item
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		at, err := r.lockScope(tx, current.Scope)
		if err != nil {
			return err
		}

		var row dbmysql.Item
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(id)
		}
		if err != nil {
			return err
		}

		locked := row.ToCommon()
		next, err := mutate(locked.Clone())
		if err != nil {
			return err
		}
		next.ID, next.Scope, next.Order, next.CreatedAt = locked.ID, locked.Scope, locked.Order, locked.CreatedAt
		next.UpdatedAt = at

		updated := dbmysql.FromCommon(next)
		if err := tx.Model(&dbmysql.Item{}).Where("id = ?", id).
			Select("owner_id", "status", "kind", "caption", "scheduled_date", "media_ref",
				"rejection_reason", "rejected_at", "rejected_by", "updated_at").
			Updates(&updated).Error; err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		if err := bumpScope(tx, locked.Scope, at); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// CommitOrder writes a whole reorder batch atomically. A batch built from a stale view fails with a ConflictError.
func (r *ItemRepository) CommitOrder(ctx context.Context, scope string, batch []ordering.Position) (OrderResult, error) {
	var out OrderResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		at, err := r.lockScope(tx, scope)
		if err != nil {
			return err
		}
		rows, err := lockedScopeRows(tx, scope)
		if err != nil {
			return err
		}
		current := dbmysql.ToCommonList(rows)
		if err := ordering.ValidateBatch(current, batch); err != nil {
			return err
		}

		next := ordering.Apply(current, batch)
		byID := make(map[string]int, len(current))
		for _, it := range current {
			byID[it.ID] = it.Order
		}
		for i := range next {
			if byID[next[i].ID] == next[i].Order {
				continue
			}
			next[i].UpdatedAt = at
			out.Moved = append(out.Moved, next[i].ID)
			if err := tx.Model(&dbmysql.Item{}).Where("id = ?", next[i].ID).
				Updates(map[string]interface{}{"sort_order": next[i].Order, "updated_at": at}).Error; err != nil {
				return fmt.Errorf("write order for %s: %w", next[i].ID, err)
			}
		}
		if len(out.Moved) > 0 {
			if err := bumpScope(tx, scope, at); err != nil {
				return err
			}
		}
		out.Items = next
		return nil
	})
	return out, err
}

// Delete tombstones the item and compacts the orders of the rest of its scope.
// check runs against the locked row before anything is written.
func (r *ItemRepository) Delete(ctx context.Context, id string, check func(current common.Item) error) (common.Item, error) {
	current, err := r.ByID(ctx, id)
	if err != nil {
		return common.Item{}, err
	}

	var out common.Item
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		at, err := r.lockScope(tx, current.Scope)
		if err != nil {
			return err
		}
		rows, err := lockedScopeRows(tx, current.Scope)
		if err != nil {
			return err
		}

		remaining := make([]common.Item, 0, len(rows))
		found := false
		for _, row := range rows {
			if row.ID == id {
				out = row.ToCommon()
				found = true
				continue
			}
			remaining = append(remaining, row.ToCommon())
		}
		if !found {
			return notFound(id)
		}
		if check != nil {
			if err := check(out); err != nil {
				return err
			}
		}

		if err := tx.Model(&dbmysql.Item{}).Where("id = ?", id).
			Updates(map[string]interface{}{"deleted_at": at, "updated_at": at}).Error; err != nil {
			return fmt.Errorf("tombstone item: %w", err)
		}
		out.UpdatedAt = at
		for i, it := range remaining {
			if it.Order == i {
				continue
			}
			if err := tx.Model(&dbmysql.Item{}).Where("id = ?", it.ID).
				Updates(map[string]interface{}{"sort_order": i, "updated_at": at}).Error; err != nil {
				return fmt.Errorf("compact order for %s: %w", it.ID, err)
			}
		}
		return bumpScope(tx, current.Scope, at)
	})
	return out, err
}

type purgeMark struct {
	Scope         string
	PurgedThrough time.Time
}

// PurgeTombstones hard-deletes tombstones older than before and advances each affected
// scope's purged_through to the newest tombstone removed from it.
func (r *ItemRepository) PurgeTombstones(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var marks []purgeMark
		if err := tx.Unscoped().Model(&dbmysql.Item{}).
			Select("scope, MAX(deleted_at) AS purged_through").
			Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
			Group("scope").
			Scan(&marks).Error; err != nil {
			return fmt.Errorf("find tombstones: %w", err)
		}
		if len(marks) == 0 {
			return nil
		}

		for _, m := range marks {
			if err := tx.Model(&dbmysql.ScopeVersion{}).
				Where("scope = ? AND (purged_through IS NULL OR purged_through < ?)", m.Scope, m.PurgedThrough).
				Update("purged_through", m.PurgedThrough).Error; err != nil {
				return fmt.Errorf("advance purge mark for %s: %w", m.Scope, err)
			}
		}

		res := tx.Unscoped().
			Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
			Delete(&dbmysql.Item{})
		if res.Error != nil {
			return fmt.Errorf("purge tombstones: %w", res.Error)
		}
		purged = res.RowsAffected
		return nil
	})
	return purged, err
}
