package item

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"contentflow/internal/common"
	"contentflow/internal/ordering"
)

var itemColumns = []string{
	"id", "owner_id", "scope", "sort_order", "status", "kind", "caption", "scheduled_date",
	"media_ref", "rejection_reason", "rejected_at", "rejected_by", "created_at", "updated_at", "deleted_at",
}

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}

	return gormDB, mock, cleanup
}

func fixedClock(t time.Time) common.Clock {
	return common.ClockFunc(func() time.Time { return t })
}

func itemRow(id, scope string, order int, status common.Status, updated time.Time, deleted interface{}) []driver.Value {
	return []driver.Value{
		id, "u1", scope, order, string(status), "POST", "caption", nil,
		"media-" + id, nil, nil, nil, updated, updated, deleted,
	}
}

func expectScopeLock(mock sqlmock.Sqlmock, scope string, last interface{}) {
	mock.ExpectExec("INSERT INTO `scope_versions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT \\* FROM `scope_versions` WHERE scope = \\?.*FOR UPDATE").
		WithArgs(scope, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"scope", "version", "last_write_at"}).AddRow(scope, 4, last))
}

func expectScopeRead(mock sqlmock.Sqlmock, scope string, lastWrite, purged interface{}) {
	mock.ExpectQuery("SELECT \\* FROM `scope_versions` WHERE scope = \\?").
		WithArgs(scope, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"scope", "version", "last_write_at", "purged_through"}).
			AddRow(scope, 4, lastWrite, purged))
}

func TestItemRepository_ByID(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mockSetup func(sqlmock.Sqlmock)
		expectErr func(error) bool
	}{
		{
			name: "found",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(itemColumns).AddRow(itemRow("item-1", "feed", 0, common.StatusDraft, now, nil)...)
				mock.ExpectQuery("SELECT \\* FROM `items` WHERE id = \\?").
					WithArgs("item-1", sqlmock.AnyArg()).
					WillReturnRows(rows)
			},
		},
		{
			name: "missing row maps to not found",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT \\* FROM `items` WHERE id = \\?").
					WithArgs("item-1", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows(itemColumns))
			},
			expectErr: common.IsNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()
			tt.mockSetup(mock)

			repo := NewItemRepository(db, fixedClock(now))
			got, err := repo.ByID(context.Background(), "item-1")

			if tt.expectErr != nil {
				assert.True(t, tt.expectErr(err), "unexpected error %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "item-1", got.ID)
				assert.Equal(t, common.StatusDraft, got.Status)
				assert.Equal(t, now, got.UpdatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestItemRepository_ChangedSince_SplitsTombstones(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := since.Add(5 * time.Millisecond)
	t2 := since.Add(9 * time.Millisecond)

	purged := since.Add(-time.Hour)
	expectScopeRead(mock, "feed", t2, purged)
	rows := sqlmock.NewRows(itemColumns).
		AddRow(itemRow("live", "feed", 0, common.StatusReview, t1, nil)...).
		AddRow(itemRow("gone", "feed", 1, common.StatusDraft, t2, t2)...)
	mock.ExpectQuery("SELECT \\* FROM `items` WHERE scope = \\? AND updated_at > \\?").
		WithArgs("feed", since).
		WillReturnRows(rows)

	repo := NewItemRepository(db, fixedClock(since))
	d, err := repo.ChangedSince(context.Background(), "feed", since)
	require.NoError(t, err)

	require.Len(t, d.Items, 1)
	assert.Equal(t, "live", d.Items[0].ID)
	assert.Equal(t, []string{"gone"}, d.DeletedIDs)
	assert.Equal(t, t2, d.Latest)
	assert.Equal(t, t2, d.LastWriteAt)
	assert.Equal(t, purged, d.PurgedThrough)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_ChangedSince_ZeroSinceReadsWholeScope(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `scope_versions` WHERE scope = \\?").
		WithArgs("feed", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"scope", "version", "last_write_at", "purged_through"}))
	mock.ExpectQuery("SELECT \\* FROM `items` WHERE scope = \\? ORDER BY").
		WithArgs("feed").
		WillReturnRows(sqlmock.NewRows(itemColumns))

	repo := NewItemRepository(db, nil)
	d, err := repo.ChangedSince(context.Background(), "feed", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, d.Items)
	assert.Empty(t, d.DeletedIDs)
	assert.True(t, d.Latest.IsZero())
	assert.True(t, d.LastWriteAt.IsZero())
	assert.True(t, d.PurgedThrough.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_Create(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(time.Second)

	tests := []struct {
		name        string
		mockSetup   func(sqlmock.Sqlmock)
		expectError bool
		wantOrder   int
		wantAt      time.Time
	}{
		{
			name: "appends to the end of the scope",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				expectScopeLock(mock, "feed", nil)
				mock.ExpectQuery("SELECT MAX\\(sort_order\\) FROM `items`").
					WillReturnRows(sqlmock.NewRows([]string{"MAX(sort_order)"}).AddRow(2))
				mock.ExpectExec("INSERT INTO `items`").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("UPDATE `scope_versions` SET").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantOrder: 3,
			wantAt:    now,
		},
		{
			name: "empty scope starts at zero and never goes behind the last write",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				expectScopeLock(mock, "feed", last)
				mock.ExpectQuery("SELECT MAX\\(sort_order\\) FROM `items`").
					WillReturnRows(sqlmock.NewRows([]string{"MAX(sort_order)"}).AddRow(nil))
				mock.ExpectExec("INSERT INTO `items`").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("UPDATE `scope_versions` SET").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantOrder: 0,
			wantAt:    last.Add(time.Millisecond),
		},
		{
			name: "insert failure rolls back",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				expectScopeLock(mock, "feed", nil)
				mock.ExpectQuery("SELECT MAX\\(sort_order\\) FROM `items`").
					WillReturnRows(sqlmock.NewRows([]string{"MAX(sort_order)"}).AddRow(nil))
				mock.ExpectExec("INSERT INTO `items`").
					WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()
			tt.mockSetup(mock)

			repo := NewItemRepository(db, fixedClock(now))
			got, err := repo.Create(context.Background(), common.Item{
				ID:       "item-1",
				OwnerID:  "u1",
				Scope:    "feed",
				MediaRef: "m1",
				Kind:     common.KindPost,
				Status:   common.StatusDraft,
			})

			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantOrder, got.Order)
				assert.Equal(t, tt.wantAt, got.CreatedAt)
				assert.Equal(t, tt.wantAt, got.UpdatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestItemRepository_CommitOrder_StaleBatchConflicts(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	expectScopeLock(mock, "feed", nil)
	mock.ExpectQuery("SELECT \\* FROM `items` WHERE scope = \\?").
		WithArgs("feed").
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow(itemRow("a", "feed", 0, common.StatusDraft, now, nil)...).
			AddRow(itemRow("b", "feed", 1, common.StatusDraft, now, nil)...))
	mock.ExpectRollback()

	repo := NewItemRepository(db, fixedClock(now))
	_, err := repo.CommitOrder(context.Background(), "feed", []ordering.Position{
		{ID: "a", Order: 1},
		{ID: "x", Order: 0},
	})
	assert.True(t, common.IsConflict(err), "expected conflict, got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_CommitOrder_WritesOnlyMovedRows(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	expectScopeLock(mock, "feed", nil)
	mock.ExpectQuery("SELECT \\* FROM `items` WHERE scope = \\?").
		WithArgs("feed").
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow(itemRow("a", "feed", 0, common.StatusDraft, now, nil)...).
			AddRow(itemRow("b", "feed", 1, common.StatusDraft, now, nil)...).
			AddRow(itemRow("c", "feed", 2, common.StatusDraft, now, nil)...))
	mock.ExpectExec("UPDATE `items` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `items` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `scope_versions` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewItemRepository(db, fixedClock(now))
	res, err := repo.CommitOrder(context.Background(), "feed", []ordering.Position{
		{ID: "a", Order: 0},
		{ID: "b", Order: 2},
		{ID: "c", Order: 1},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, res.Moved)
	assert.Len(t, res.Items, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_PurgeTombstones(t *testing.T) {
	before := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	feedMark := before.Add(-time.Hour)
	storyMark := before.Add(-2 * time.Hour)

	tests := []struct {
		name        string
		mockSetup   func(sqlmock.Sqlmock)
		expectError bool
		want        int64
	}{
		{
			name: "advances the mark of every purged scope",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT scope, MAX\\(deleted_at\\) AS purged_through FROM `items` WHERE deleted_at IS NOT NULL AND deleted_at < \\? GROUP BY").
					WithArgs(before).
					WillReturnRows(sqlmock.NewRows([]string{"scope", "purged_through"}).
						AddRow("feed", feedMark).
						AddRow("story", storyMark))
				mock.ExpectExec("UPDATE `scope_versions` SET `purged_through`=\\? WHERE scope = \\? AND \\(purged_through IS NULL OR purged_through < \\?\\)").
					WithArgs(feedMark, "feed", feedMark).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("UPDATE `scope_versions` SET `purged_through`=\\?").
					WithArgs(storyMark, "story", storyMark).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("DELETE FROM `items` WHERE deleted_at IS NOT NULL AND deleted_at < \\?").
					WithArgs(before).
					WillReturnResult(sqlmock.NewResult(0, 4))
				mock.ExpectCommit()
			},
			want: 4,
		},
		{
			name: "nothing to purge leaves the marks alone",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT scope, MAX\\(deleted_at\\)").
					WithArgs(before).
					WillReturnRows(sqlmock.NewRows([]string{"scope", "purged_through"}))
				mock.ExpectCommit()
			},
		},
		{
			name: "delete failure rolls the marks back",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT scope, MAX\\(deleted_at\\)").
					WithArgs(before).
					WillReturnRows(sqlmock.NewRows([]string{"scope", "purged_through"}).AddRow("feed", feedMark))
				mock.ExpectExec("UPDATE `scope_versions` SET `purged_through`=\\?").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("DELETE FROM `items`").
					WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()
			tt.mockSetup(mock)

			repo := NewItemRepository(db, nil)
			n, err := repo.PurgeTombstones(context.Background(), before)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, n)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func expectByID(mock sqlmock.Sqlmock, row []driver.Value) {
	mock.ExpectQuery("SELECT \\* FROM `items` WHERE id = \\?").
		WithArgs(row[0], sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(row...))
}

func TestItemRepository_Update(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stored := itemRow("item-1", "feed", 2, common.StatusDraft, now.Add(-time.Hour), nil)
	locked := itemRow("item-1", "feed", 2, common.StatusReview, now.Add(-time.Minute), nil)

	tests := []struct {
		name      string
		mutate    MutateFunc
		mockSetup func(sqlmock.Sqlmock)
		expectErr func(error) bool
	}{
		{
			name: "mutates the locked row",
			mutate: func(current common.Item) (common.Item, error) {
				assert.Equal(t, common.StatusReview, current.Status)
				current.Status = common.StatusApproved
				current.Order = 99
				current.Scope = "elsewhere"
				return current, nil
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				expectByID(mock, stored)
				mock.ExpectBegin()
				expectScopeLock(mock, "feed", nil)
				mock.ExpectQuery("SELECT \\* FROM `items` WHERE id = \\?.*FOR UPDATE").
					WithArgs("item-1", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(locked...))
				mock.ExpectExec("UPDATE `items` SET").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("UPDATE `scope_versions` SET").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "guard failure rolls back without writing",
			mutate: func(current common.Item) (common.Item, error) {
				return current, &common.PermissionError{Role: common.RoleContentCreator, Action: "approve"}
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				expectByID(mock, stored)
				mock.ExpectBegin()
				expectScopeLock(mock, "feed", nil)
				mock.ExpectQuery("SELECT \\* FROM `items` WHERE id = \\?.*FOR UPDATE").
					WithArgs("item-1", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(locked...))
				mock.ExpectRollback()
			},
			expectErr: common.IsPermission,
		},
		{
			name: "validation failure rolls back without writing",
			mutate: func(current common.Item) (common.Item, error) {
				return current, common.NewValidationError("caption", "too long")
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				expectByID(mock, stored)
				mock.ExpectBegin()
				expectScopeLock(mock, "feed", nil)
				mock.ExpectQuery("SELECT \\* FROM `items` WHERE id = \\?.*FOR UPDATE").
					WithArgs("item-1", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(locked...))
				mock.ExpectRollback()
			},
			expectErr: common.IsValidation,
		},
		{
			name: "row deleted before the lock",
			mutate: func(current common.Item) (common.Item, error) {
				return current, errors.New("mutate ran")
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				expectByID(mock, stored)
				mock.ExpectBegin()
				expectScopeLock(mock, "feed", nil)
				mock.ExpectQuery("SELECT \\* FROM `items` WHERE id = \\?.*FOR UPDATE").
					WithArgs("item-1", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows(itemColumns))
				mock.ExpectRollback()
			},
			expectErr: common.IsNotFound,
		},
		{
			name: "unknown id never opens a transaction",
			mutate: func(current common.Item) (common.Item, error) {
				return current, errors.New("mutate ran")
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT \\* FROM `items` WHERE id = \\?").
					WithArgs("item-1", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows(itemColumns))
			},
			expectErr: common.IsNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()
			tt.mockSetup(mock)

			repo := NewItemRepository(db, fixedClock(now))
			got, err := repo.Update(context.Background(), "item-1", tt.mutate)

			if tt.expectErr != nil {
				assert.True(t, tt.expectErr(err), "unexpected error %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, common.StatusApproved, got.Status)
				assert.Equal(t, 2, got.Order)
				assert.Equal(t, "feed", got.Scope)
				assert.Equal(t, now, got.UpdatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestItemRepository_Delete(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scopeRows := func() *sqlmock.Rows {
		return sqlmock.NewRows(itemColumns).
			AddRow(itemRow("a", "feed", 0, common.StatusDraft, now.Add(-time.Hour), nil)...).
			AddRow(itemRow("b", "feed", 1, common.StatusDraft, now.Add(-time.Hour), nil)...).
			AddRow(itemRow("c", "feed", 2, common.StatusDraft, now.Add(-time.Hour), nil)...)
	}
	begin := func(mock sqlmock.Sqlmock, id string) {
		expectByID(mock, itemRow(id, "feed", 0, common.StatusDraft, now.Add(-time.Hour), nil))
		mock.ExpectBegin()
		expectScopeLock(mock, "feed", nil)
		mock.ExpectQuery("SELECT \\* FROM `items` WHERE scope = \\?").
			WithArgs("feed").
			WillReturnRows(scopeRows())
	}

	tests := []struct {
		name      string
		id        string
		check     func(common.Item) error
		mockSetup func(sqlmock.Sqlmock)
		expectErr func(error) bool
	}{
		{
			name: "deleting the head compacts the rest",
			id:   "a",
			mockSetup: func(mock sqlmock.Sqlmock) {
				begin(mock, "a")
				mock.ExpectExec("UPDATE `items` SET `deleted_at`=\\?,`updated_at`=\\? WHERE id = \\?").
					WithArgs(now, now, "a").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("UPDATE `items` SET `sort_order`=\\?,`updated_at`=\\? WHERE id = \\?").
					WithArgs(0, now, "b").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("UPDATE `items` SET `sort_order`=\\?,`updated_at`=\\? WHERE id = \\?").
					WithArgs(1, now, "c").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("UPDATE `scope_versions` SET").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "deleting the tail moves nothing",
			id:   "c",
			mockSetup: func(mock sqlmock.Sqlmock) {
				begin(mock, "c")
				mock.ExpectExec("UPDATE `items` SET `deleted_at`=\\?,`updated_at`=\\? WHERE id = \\?").
					WithArgs(now, now, "c").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("UPDATE `scope_versions` SET").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "failed check rolls back",
			id:   "b",
			check: func(common.Item) error {
				return &common.PermissionError{Role: common.RoleUser, Action: "delete item b"}
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				begin(mock, "b")
				mock.ExpectRollback()
			},
			expectErr: common.IsPermission,
		},
		{
			name: "row gone by the time the scope is locked",
			id:   "x",
			mockSetup: func(mock sqlmock.Sqlmock) {
				begin(mock, "x")
				mock.ExpectRollback()
			},
			expectErr: common.IsNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()
			tt.mockSetup(mock)

			repo := NewItemRepository(db, fixedClock(now))
			got, err := repo.Delete(context.Background(), tt.id, tt.check)

			if tt.expectErr != nil {
				assert.True(t, tt.expectErr(err), "unexpected error %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.id, got.ID)
				assert.Equal(t, now, got.UpdatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
