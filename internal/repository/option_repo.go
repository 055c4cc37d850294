package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"go-token-auth/internal/model"
)

// OptionRepository is the process-wide key/value configuration table.
type OptionRepository struct {
	db Querier
}

func NewOptionRepository(db Querier) *OptionRepository {
	return &OptionRepository{db: db}
}

func (r *OptionRepository) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM options WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrOptionNotFound
	}
	if err != nil {
		return "", oops.In("option_repository").With("option", name).Wrapf(err, "get option")
	}
	return value, nil
}

// InsertIfAbsent stores value under name unless a row already exists, then
// returns whatever value is persisted. Concurrent callers all observe the
// row that won the insert.
func (r *OptionRepository) InsertIfAbsent(ctx context.Context, name string, value string) (string, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO options (name, value) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		name, value)
	if err != nil {
		return "", oops.In("option_repository").With("option", name).Wrapf(err, "insert option")
	}

	return r.Get(ctx, name)
}
