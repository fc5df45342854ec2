package dao

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/repository/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

// newMockDB postgres 方言跑在 sqlmock 上，用于构造数据库故障
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestSchemaDAO_ListColumns(t *testing.T) {
	ctx := context.Background()
	d := NewSchemaDAO(newTestDB(t))

	cols, err := d.ListColumns(ctx, "vendors")
	require.NoError(t, err)
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
		assert.NotEmpty(t, c.NativeType, c.Name)
	}
	assert.Equal(t, []string{"name", "email", "phone", "address", "contact_person", "tax_id", "notes", "status"}, names)

	_, err = d.ListColumns(ctx, "no_such_table")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestSchemaDAO_SeesColumnsAddedOutOfBand(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Exec("ALTER TABLE vendors ADD COLUMN string_field1 varchar(100)").Error)

	cols, err := NewSchemaDAO(db).ListColumns(ctx, "vendors")
	require.NoError(t, err)
	last := cols[len(cols)-1]
	assert.Equal(t, "string_field1", last.Name)
}

func TestIsManagedColumn(t *testing.T) {
	assert.True(t, IsManagedColumn("id"))
	assert.True(t, IsManagedColumn("created_at"))
	assert.True(t, IsManagedColumn("updated_at"))
	assert.False(t, IsManagedColumn("status"))
}

func TestFieldMetaDAO_TablesAreIsolatedPerKind(t *testing.T) {
	ctx := context.Background()
	d := NewFieldMetaDAO(newTestDB(t))
	require.NoError(t, d.Create(ctx, model.KindVendor, &model.FieldMeta{FieldName: "email", FieldLabel: "Email"}))
	require.NoError(t, d.Create(ctx, model.KindTask, &model.FieldMeta{FieldName: "title", FieldLabel: "Title"}))

	vendor, err := d.List(ctx, model.KindVendor)
	require.NoError(t, err)
	require.Len(t, vendor, 1)
	assert.Equal(t, "email", vendor[0].FieldName)

	m, err := d.FindByName(ctx, model.KindProspect, "email")
	require.NoError(t, err)
	assert.Nil(t, m)

	byNames, err := d.ListByNames(ctx, model.KindVendor, []string{"email", "phone"})
	require.NoError(t, err)
	assert.Len(t, byNames, 1)
	empty, err := d.ListByNames(ctx, model.KindVendor, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFieldMetaDAO_UpdateOrderTouchesOnlyOrder(t *testing.T) {
	ctx := context.Background()
	d := NewFieldMetaDAO(newTestDB(t))
	m := &model.FieldMeta{FieldName: "notes", FieldLabel: "Internal notes", IsActive: true, IsRequired: true, DisplayOrder: 1}
	require.NoError(t, d.Create(ctx, model.KindVendor, m))

	require.NoError(t, d.UpdateOrder(ctx, model.KindVendor, m.ID, 5))
	got, err := d.FindByID(ctx, model.KindVendor, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.DisplayOrder)
	assert.Equal(t, "Internal notes", got.FieldLabel)
	assert.True(t, got.IsActive)
	assert.True(t, got.IsRequired)

	n, err := d.Delete(ctx, model.KindVendor, m.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	got, err = d.FindByID(ctx, model.KindVendor, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordDAO_InsertFindUpdateDelete(t *testing.T) {
	ctx := context.Background()
	d := NewRecordDAO(newTestDB(t))
	now := time.Now()

	id1, err := d.Insert(ctx, "vendors", map[string]interface{}{"name": "Acme", "created_at": now, "updated_at": now})
	require.NoError(t, err)
	id2, err := d.Insert(ctx, "vendors", map[string]interface{}{"name": "Globex", "created_at": now, "updated_at": now})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	row, err := d.Find(ctx, "vendors", id1)
	require.NoError(t, err)
	assert.Equal(t, "Acme", row["name"])

	n, err := d.Update(ctx, "vendors", id1, map[string]interface{}{"phone": "555-0100"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rows, err := d.List(ctx, "vendors")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Globex", rows[0]["name"], "newest first")

	n, err = d.Delete(ctx, "vendors", id1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	row, err = d.Find(ctx, "vendors", id1)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestRecordDAO_CountByStatusBucketsBlank(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	d := NewRecordDAO(db)
	for _, status := range []string{"pending", "pending", "completed", ""} {
		require.NoError(t, db.Exec("INSERT INTO tasks (title, status, priority, is_active) VALUES (?, ?, 'low', 1)", "t", status).Error)
	}

	got, err := d.CountByStatus(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"pending": 2, "completed": 1, "unknown": 1}, got)

	total, err := d.Count(ctx, "tasks")
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
}

func TestRecordDAO_LastWorkorderNumber(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	d := NewRecordDAO(db)
	for _, num := range []string{"WO-202609-0007", "WO-202610-0002", "WO-202610-0010"} {
		require.NoError(t, db.Exec("INSERT INTO workorders (workorder_number, title, status, priority, is_active) VALUES (?, 'x', 'pending', 'low', 1)", num).Error)
	}

	last, err := d.LastWorkorderNumber(ctx, "WO-202610-")
	require.NoError(t, err)
	assert.Equal(t, "WO-202610-0010", last)

	none, err := d.LastWorkorderNumber(ctx, "WO-202501-")
	require.NoError(t, err)
	assert.Empty(t, none)

	err = db.Exec("INSERT INTO workorders (workorder_number, title, status, priority, is_active) VALUES ('WO-202610-0010', 'dup', 'pending', 'low', 1)").Error
	assert.Error(t, err)
}

func TestRecordDAO_CountErrorPropagates(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "tasks"`).WillReturnError(errors.New("connection reset"))

	_, err := NewRecordDAO(db).Count(context.Background(), "tasks")
	assert.EqualError(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDAO_PostgresInsertUsesLastval(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "vendors"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT lastval\(\)`).WillReturnRows(sqlmock.NewRows([]string{"lastval"}).AddRow(41))
	mock.ExpectCommit()

	id, err := NewRecordDAO(db).Insert(context.Background(), "vendors", map[string]interface{}{"name": "Acme"})
	require.NoError(t, err)
	assert.EqualValues(t, 41, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormDAO_PublishDuplicateKey(t *testing.T) {
	ctx := context.Background()
	d := NewFormDAO(newTestDB(t))
	a := &model.Form{Name: "A", Type: model.FormTypeVendor, IsActive: true}
	b := &model.Form{Name: "B", Type: model.FormTypeVendor, IsActive: true}
	require.NoError(t, d.Create(ctx, a))
	require.NoError(t, d.Create(ctx, b))

	require.NoError(t, d.Publish(ctx, a.ID, "k1"))
	exists, err := d.PublicKeyExists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)

	err = d.Publish(ctx, b.ID, "k1")
	assert.True(t, IsDuplicate(err), "got %v", err)
}

func TestFormFieldDAO_MaxOrderAndExistingIDs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	forms := NewFormDAO(db)
	fields := NewFormFieldDAO(db)
	f := &model.Form{Name: "A", Type: model.FormTypeVendor, IsActive: true}
	require.NoError(t, forms.Create(ctx, f))

	top, err := fields.MaxOrder(ctx, f.ID)
	require.NoError(t, err)
	assert.Zero(t, top)

	ff := &model.FormField{FormID: f.ID, FieldName: "name", FieldSource: "vendor", DisplayOrder: 4, IsVisible: true}
	require.NoError(t, fields.Create(ctx, ff))
	top, err = fields.MaxOrder(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, top)

	ids, err := fields.ExistingIDs(ctx, []int64{ff.ID, ff.ID + 99})
	require.NoError(t, err)
	assert.Equal(t, []int64{ff.ID}, ids)
}

func TestFormFieldDAO_ReorderRunsIndependentUpdates(t *testing.T) {
	db, mock := newMockDB(t)
	// 无 BEGIN / ROLLBACK：第一条写入在第二条失败后保留
	mock.ExpectExec(`UPDATE "form_fields" SET "display_order"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "form_fields" SET "display_order"`).WillReturnError(errors.New("deadlock detected"))

	err := NewFormFieldDAO(db).Reorder(context.Background(), 1, []int64{11, 12, 13})
	assert.EqualError(t, err, "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormFieldDAO_ReorderScopedToForm(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	forms := NewFormDAO(db)
	fields := NewFormFieldDAO(db)
	a := &model.Form{Name: "A", Type: model.FormTypeVendor, IsActive: true}
	b := &model.Form{Name: "B", Type: model.FormTypeVendor, IsActive: true}
	require.NoError(t, forms.Create(ctx, a))
	require.NoError(t, forms.Create(ctx, b))
	a1 := &model.FormField{FormID: a.ID, FieldName: "name", FieldSource: "vendor", DisplayOrder: 1, IsVisible: true}
	a2 := &model.FormField{FormID: a.ID, FieldName: "email", FieldSource: "vendor", DisplayOrder: 2, IsVisible: true}
	b1 := &model.FormField{FormID: b.ID, FieldName: "phone", FieldSource: "vendor", DisplayOrder: 7, IsVisible: true}
	for _, f := range []*model.FormField{a1, a2, b1} {
		require.NoError(t, fields.Create(ctx, f))
	}

	require.NoError(t, fields.Reorder(ctx, a.ID, []int64{a2.ID, b1.ID, a1.ID}))

	got, err := forms.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "email", got.Fields[0].FieldName)
	assert.Equal(t, 1, got.Fields[0].DisplayOrder)
	assert.Equal(t, 3, got.Fields[1].DisplayOrder)
	other, err := forms.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, other.Fields[0].DisplayOrder, "其他表单的字段不受影响")
}

func TestFormDAO_PublicKeysUsingFields(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	forms := NewFormDAO(db)
	fields := NewFormFieldDAO(db)
	mk := func(name, key string, refs ...string) {
		f := &model.Form{Name: name, Type: model.FormTypeVendor, IsActive: true}
		require.NoError(t, forms.Create(ctx, f))
		if key != "" {
			require.NoError(t, forms.Publish(ctx, f.ID, key))
		}
		for i, r := range refs {
			require.NoError(t, fields.Create(ctx, &model.FormField{FormID: f.ID, FieldName: r, FieldSource: "vendor", DisplayOrder: i + 1, IsVisible: true}))
		}
	}
	mk("intake", "key-intake", "name", "email")
	mk("survey", "key-survey", "email", "phone")
	mk("draft", "", "email")
	mk("other", "key-other", "notes")

	keys, err := forms.PublicKeysUsingFields(ctx, "vendor", []string{"email"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"key-intake", "key-survey"}, keys)

	keys, err = forms.PublicKeysUsingFields(ctx, "prospect", []string{"email"})
	require.NoError(t, err)
	assert.Empty(t, keys, "来源不同不算引用")

	keys, err = forms.PublicKeysUsingFields(ctx, "vendor", []string{"name", "email"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"key-intake", "key-survey"}, keys, "同一表单只返回一次")

	keys, err = forms.PublicKeysUsingFields(ctx, "vendor", nil)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestOperationLogDAO_ListPage(t *testing.T) {
	ctx := context.Background()
	d := NewOperationLogDAO(newTestDB(t))
	for i, action := range []string{"post_api_forms", "put_api_vendors_id", "post_api_forms_id_fields"} {
		require.NoError(t, d.Create(ctx, &model.OperationLog{ActionName: action, URL: "/api/x", AddTime: int64(100 + i)}))
	}

	list, total, err := d.ListPage(ctx, "forms", 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 1)
	assert.Equal(t, "post_api_forms_id_fields", list[0].ActionName)

	all, total, err := d.ListPage(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)
}
