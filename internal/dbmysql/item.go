package dbmysql

import (
	"time"

	"gorm.io/gorm"

	"contentflow/internal/common"
)

// Item is one row of the items table. Timestamps are assigned by the repository under the
// scope lock, so gorm's own create/update tracking is off.
type Item struct {
	ID              string         `gorm:"primaryKey;type:char(36);column:id"`
	OwnerID         string         `gorm:"type:varchar(64);not null;column:owner_id;index"`
	Scope           string         `gorm:"type:varchar(64);not null;column:scope;index:idx_items_scope_order,priority:1;index:idx_items_scope_updated,priority:1"`
	SortOrder       int            `gorm:"not null;default:0;column:sort_order;index:idx_items_scope_order,priority:2"`
	Status          string         `gorm:"type:ENUM('DRAFT','REVIEW','APPROVED','SCHEDULED','PUBLISHED');not null;column:status"`
	Kind            string         `gorm:"type:ENUM('POST','REEL','STORY');not null;column:kind"`
	Caption         string         `gorm:"type:text;column:caption"`
	ScheduledDate   *time.Time     `gorm:"type:datetime(3);column:scheduled_date"`
	MediaRef        string         `gorm:"type:varchar(64);not null;column:media_ref"`
	RejectionReason *string        `gorm:"type:text;column:rejection_reason"`
	RejectedAt      *time.Time     `gorm:"type:datetime(3);column:rejected_at"`
	RejectedBy      *string        `gorm:"type:varchar(64);column:rejected_by"`
	CreatedAt       time.Time      `gorm:"type:datetime(3);not null;column:created_at;autoCreateTime:false"`
	UpdatedAt       time.Time      `gorm:"type:datetime(3);not null;column:updated_at;autoUpdateTime:false;index:idx_items_scope_updated,priority:2"`
	DeletedAt       gorm.DeletedAt `gorm:"type:datetime(3);column:deleted_at;index"`
}

func (Item) TableName() string {
	return "items"
}

// ScopeVersion is locked by every write in a scope. PurgedThrough is the newest tombstone
// the janitor has hard-deleted; pollers behind it may have missed a delete.
type ScopeVersion struct {
	Scope         string     `gorm:"primaryKey;type:varchar(64);column:scope"`
	Version       int64      `gorm:"not null;default:0;column:version"`
	LastWriteAt   *time.Time `gorm:"type:datetime(3);column:last_write_at"`
	PurgedThrough *time.Time `gorm:"type:datetime(3);column:purged_through"`
}

func (ScopeVersion) TableName() string {
	return "scope_versions"
}

func (r Item) ToCommon() common.Item {
	return common.Item{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		Scope:           r.Scope,
		MediaRef:        r.MediaRef,
		Caption:         r.Caption,
		Kind:            common.Kind(r.Kind),
		Status:          common.Status(r.Status),
		ScheduledDate:   utcPtr(r.ScheduledDate),
		Order:           r.SortOrder,
		RejectionReason: r.RejectionReason,
		RejectedAt:      utcPtr(r.RejectedAt),
		RejectedBy:      r.RejectedBy,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func FromCommon(it common.Item) Item {
	return Item{
		ID:              it.ID,
		OwnerID:         it.OwnerID,
		Scope:           it.Scope,
		SortOrder:       it.Order,
		Status:          string(it.Status),
		Kind:            string(it.Kind),
		Caption:         it.Caption,
		ScheduledDate:   it.ScheduledDate,
		MediaRef:        it.MediaRef,
		RejectionReason: it.RejectionReason,
		RejectedAt:      it.RejectedAt,
		RejectedBy:      it.RejectedBy,
		CreatedAt:       it.CreatedAt,
		UpdatedAt:       it.UpdatedAt,
	}
}

func ToCommonList(rows []Item) []common.Item {
	out := make([]common.Item, len(rows))
	for i, r := range rows {
		out[i] = r.ToCommon()
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
