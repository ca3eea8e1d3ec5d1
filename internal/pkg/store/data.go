package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/paulexconde/surveyflow/pkg/fault"
)

// Postgres error codes mapped onto fault sentinels.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type dataStore[T any] struct {
	db         *sqlx.DB
	tablename  string
	hooks      Hooks
	mu         sync.RWMutex
	dtoFactory func() any
}

func NewDataStore[T any](db *sqlx.DB, tablename string, dtoFactory ...func() any) *dataStore[T] {
	var factory func() any

	if len(dtoFactory) > 0 {
		factory = dtoFactory[0]
	}

	return &dataStore[T]{
		db:         db,
		tablename:  tablename,
		mu:         sync.RWMutex{},
		dtoFactory: factory,
	}
}

func (s *dataStore[T]) Base() *sqlx.DB {
	return s.db
}

func (s *dataStore[T]) SetHooks(hooks Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks.PreSave = append(s.hooks.PreSave, hooks.PreSave...)
	s.hooks.PostSave = append(s.hooks.PostSave, hooks.PostSave...)
	s.hooks.PreDelete = append(s.hooks.PreDelete, hooks.PreDelete...)
	s.hooks.PostDelete = append(s.hooks.PostDelete, hooks.PostDelete...)
	s.hooks.AfterSaveCommit = append(s.hooks.AfterSaveCommit, hooks.AfterSaveCommit...)
}

func (s *dataStore[T]) snapshotHooks() Hooks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hooks
}

// MapError translates driver errors into fault sentinels.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fault.ErrNotFound
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		switch string(pgErr.Code) {
		case pgUniqueViolation:
			return fault.ErrUniqueViolation
		case pgForeignKeyViolation:
			return fault.ErrForeignKeyViolation
		}
	}

	return err
}

func (s *dataStore[T]) QueryRow(ctx context.Context, query string, args ...any) (any, error) {
	row := s.db.QueryRowContext(ctx, query, args...)

	var result any

	if err := row.Scan(&result); err != nil {
		return nil, MapError(err)
	}

	return result, nil
}

func (s *dataStore[T]) Get(ctx context.Context, query string, args ...any) (*T, error) {
	var result T

	if err := s.db.GetContext(ctx, &result, query, args...); err != nil {
		return nil, MapError(err)
	}

	return &result, nil
}

func (s *dataStore[T]) Select(ctx context.Context, query string, args ...any) ([]T, error) {
	results := []T{}

	if err := s.db.SelectContext(ctx, &results, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []T{}, nil
		}
		return nil, err
	}

	return results, nil
}

func (s *dataStore[T]) Create(ctx context.Context, data DTO) (model any, err error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	hooks := s.snapshotHooks()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, hook := range hooks.PreSave {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if err = hook(ctx, tx, data, true); err != nil {
			return nil, err
		}
	}

	columns, placeholders := getStructFieldsFromDTO(data)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id", s.tablename, columns, placeholders)

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer stmt.Close()

	var id int
	if err = stmt.QueryRowContext(ctx, data).Scan(&id); err != nil {
		err = MapError(err)
		return nil, err
	}

	model = data.ToModel(id)

	for _, hook := range hooks.PostSave {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if err = hook(ctx, tx, data, model, true); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	s.runAfterCommit(ctx, hooks, data, model, true)

	return model, nil
}

func (s *dataStore[T]) Update(ctx context.Context, id int, data DTO) (model any, err error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	hooks := s.snapshotHooks()

	params := map[string]any{"id": id}
	setClause := getNonEmptyFieldsFromDTO(data, params)

	if setClause == "" {
		return nil, fault.NewClientError("no fields to update", nil)
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, hook := range hooks.PreSave {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if err = hook(ctx, tx, data, false); err != nil {
			return nil, err
		}
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", s.tablename, setClause)

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, params)
	if err != nil {
		err = MapError(err)
		return nil, err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		err = fault.ErrNotFound
		return nil, err
	}

	model, err = s.getByIDBase(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	for _, hook := range hooks.PostSave {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if err = hook(ctx, tx, data, model, false); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	s.runAfterCommit(ctx, hooks, data, model, false)

	return model, nil
}

func (s *dataStore[T]) runAfterCommit(ctx context.Context, hooks Hooks, data DTO, model any, isNew bool) {
	for _, hook := range hooks.AfterSaveCommit {
		if fn := hook(ctx, data, model, isNew); fn != nil {
			fn()
		}
	}
}

func (s *dataStore[T]) Delete(ctx context.Context, id int) error {
	hooks := s.snapshotHooks()

	return WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, hook := range hooks.PreDelete {
			if err := hook(ctx, tx, id); err != nil {
				return err
			}
		}

		query := fmt.Sprintf("DELETE FROM %s WHERE id=$1", s.tablename)

		res, err := tx.ExecContext(ctx, query, id)
		if err != nil {
			return MapError(err)
		}

		if affected, _ := res.RowsAffected(); affected == 0 {
			return fault.ErrNotFound
		}

		for _, hook := range hooks.PostDelete {
			if err := hook(ctx, tx, id); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *dataStore[T]) BulkUpdate(ctx context.Context, query string, args ...any) error {
	return WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return MapError(err)
	})
}

func (s *dataStore[T]) getByIDBase(ctx context.Context, tx *sqlx.Tx, id int) (any, error) {
	var instance any
	if s.dtoFactory != nil {
		instance = s.dtoFactory() // Use the DTO if factory exists
	} else {
		instance = new(T) // Otherwise, use the full model (`T`)
	}

	fields := strings.Join(getStructFieldNamesFromInstance(instance), ", ")
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id=$1", fields, s.tablename)

	if err := tx.GetContext(ctx, instance, query, id); err != nil {
		return nil, MapError(err)
	}

	return instance, nil
}
