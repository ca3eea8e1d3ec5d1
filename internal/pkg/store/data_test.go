package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/paulexconde/surveyflow/pkg/fault"
)

type tag struct {
	ID    int    `db:"id"`
	Label string `db:"label"`
}

type tagDTO struct {
	Label string `db:"label"`
}

func (d tagDTO) ToModel(id int) any {
	return &tag{ID: id, Label: d.Label}
}

func newMockStore(t *testing.T) (*dataStore[tag], sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error opening sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewDataStore[tag](sqlx.NewDb(db, "postgres"), "tags"), mock
}

func TestDataStore_GetNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, label FROM tags WHERE id = $1")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}))

	got, err := s.Get(context.Background(), "SELECT id, label FROM tags WHERE id = $1", 7)
	if !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil result, got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDataStore_Select(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, label FROM tags")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).AddRow(1, "a").AddRow(2, "b"))

	got, err := s.Select(context.Background(), "SELECT id, label FROM tags")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1].Label != "b" {
		t.Errorf("unexpected rows %+v", got)
	}
}

func TestDataStore_Create(t *testing.T) {
	s, mock := newMockStore(t)

	var committed bool
	s.SetHooks(Hooks{
		AfterSaveCommit: []func(ctx context.Context, data DTO, model any, isNew bool) AfterSaveCommitHook{
			func(ctx context.Context, data DTO, model any, isNew bool) AfterSaveCommitHook {
				return func() { committed = isNew }
			},
		},
	})

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO tags (label) VALUES ($1) RETURNING id")).
		ExpectQuery().
		WithArgs("urgent").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	model, err := s.Create(context.Background(), tagDTO{Label: "urgent"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created, ok := model.(*tag)
	if !ok || created.ID != 42 || created.Label != "urgent" {
		t.Errorf("unexpected model %+v", model)
	}
	if !committed {
		t.Errorf("expected after-commit hook to run")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDataStore_CreateUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO tags")).
		ExpectQuery().
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), tagDTO{Label: "dup"})
	if !errors.Is(err, fault.ErrUniqueViolation) {
		t.Errorf("expected ErrUniqueViolation, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDataStore_DeleteMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tags WHERE id=$1")).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := s.Delete(context.Background(), 3); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDataStore_UpdateWithoutFields(t *testing.T) {
	s, _ := newMockStore(t)

	_, err := s.Update(context.Background(), 1, tagDTO{})
	if !fault.IsClientError(err) {
		t.Errorf("expected client error for empty update, got %v", err)
	}
}

func TestMapError(t *testing.T) {
	if MapError(nil) != nil {
		t.Errorf("expected nil")
	}
	if !errors.Is(MapError(&pq.Error{Code: "23503"}), fault.ErrForeignKeyViolation) {
		t.Errorf("expected foreign key violation")
	}
	other := errors.New("boom")
	if MapError(other) != other {
		t.Errorf("expected unrelated errors to pass through")
	}
}

func TestGetStructFieldsFromDTO(t *testing.T) {
	type dto struct {
		tagDTO
		Name    string   `db:"name"`
		Tags    []string `db:"tags"`
		Skipped string   `db:"-"`
	}

	columns, placeholders := getStructFieldsFromDTO(dto{})
	if columns != "name, tags" {
		t.Errorf("unexpected columns %q", columns)
	}
	if placeholders != ":name, CAST(:tags AS text[])" {
		t.Errorf("unexpected placeholders %q", placeholders)
	}
}
