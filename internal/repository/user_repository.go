// internal/repository/user_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/gurkanbulca/barakaflow/internal/database"
	"github.com/gurkanbulca/barakaflow/internal/models"
)

const usersTable = "users"

var userColumns = []string{"id", "email", "password_hash", "name", "created_at", "updated_at"}

type SQLUserRepository struct {
	db *database.DB
}

func NewSQLUserRepository(db *database.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

func (r *SQLUserRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect)
}

func (r *SQLUserRepository) Create(ctx context.Context, u *models.User) error {
	query, args := r.builder().
		Insert(usersTable).
		Columns(userColumns...).
		Values(u.ID, u.Email, u.PasswordHash, u.Name, u.CreatedAt.UTC(), u.UpdatedAt.UTC()).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *SQLUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, entsql.EQ("id", id))
}

func (r *SQLUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, entsql.EQ("email", email))
}

func (r *SQLUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *SQLUserRepository) getOne(ctx context.Context, pred *entsql.Predicate) (*models.User, error) {
	query, args := r.builder().
		Select(userColumns...).
		From(entsql.Table(usersTable)).
		Where(pred).
		Limit(1).
		Query()

	var u models.User
	if err := r.db.GetContext(ctx, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
