package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	xerrors "marketshm/internal/errors"
	"marketshm/pkg/exception"
)

// Repository is a typed CRUD layer over one gorm model keyed by uuid.
type Repository[T any] struct {
	db *gorm.DB
}

func NewRepository[T any](db *gorm.DB) (*Repository[T], error) {
	if db == nil {
		return nil, exception.ErrNilSession
	}
	return &Repository[T]{db: db}, nil
}

func (r *Repository[T]) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(new(T))
}

func (r *Repository[T]) Create(ctx context.Context, row *T) error {
	return translate(r.db.WithContext(ctx).Create(row).Error)
}

func (r *Repository[T]) CreateMany(ctx context.Context, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Create(&rows).Error)
}

func (r *Repository[T]) GetOneByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var row T
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *Repository[T]) GetManyByIDs(ctx context.Context, ids []uuid.UUID) ([]T, error) {
	if len(ids) == 0 {
		return nil, exception.ErrNoIDs
	}
	rows := make([]T, 0, len(ids))
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// Latest returns up to limit rows ordered by creation time, newest first.
func (r *Repository[T]) Latest(ctx context.Context, limit int) ([]T, error) {
	rows := make([]T, 0, max(limit, 0))
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// UpdateByID applies fields, keyed by column or field name, to one row.
func (r *Repository[T]) UpdateByID(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.update(ctx, []uuid.UUID{id}, fields)
}

func (r *Repository[T]) UpdateManyByIDs(ctx context.Context, ids []uuid.UUID, fields map[string]any) error {
	if len(ids) == 0 {
		return exception.ErrNoIDs
	}
	return r.update(ctx, ids, fields)
}

func (r *Repository[T]) update(ctx context.Context, ids []uuid.UUID, fields map[string]any) error {
	if err := r.checkColumns(fields); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(new(T)).Where("id IN ?", ids).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return exception.ErrRecordNotFound
	}
	return nil
}

func (r *Repository[T]) RemoveByID(ctx context.Context, id uuid.UUID) error {
	return r.RemoveManyByIDs(ctx, []uuid.UUID{id})
}

func (r *Repository[T]) RemoveManyByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return exception.ErrNoIDs
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(new(T))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return exception.ErrRecordNotFound
	}
	return nil
}

func (r *Repository[T]) checkColumns(fields map[string]any) error {
	if len(fields) == 0 {
		return xerrors.Wrap(exception.ErrInvalidArgument, "no fields to update")
	}

	stmt := &gorm.Statement{DB: r.db}
	if err := stmt.Parse(new(T)); err != nil {
		return xerrors.Wrap(err, "parse model schema")
	}
	for name := range fields {
		if stmt.Schema.LookUpField(name) == nil {
			return xerrors.Wrapf(exception.ErrUnknownColumn, "column %q", name)
		}
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return exception.ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return xerrors.Wrap(exception.ErrIntegrityConflict, err.Error())
	default:
		return err
	}
}
