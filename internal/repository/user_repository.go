package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
)

type UserRepository struct {
	base
}

func NewUserRepository(db *gorm.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{base: newBase(db, timeout)}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	if err := db.Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return unavailable("creating user", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var u domain.User
	err := db.First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, unavailable("getting user by email", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var u domain.User
	if err := db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, unavailable("getting user", err)
	}
	return &u, nil
}

// RecordFailedLogin bumps the failure counter and locks the account once it
// reaches maxAttempts. The increment happens in SQL so parallel attempts all count.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	err := db.Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failed_login_count": gorm.Expr("failed_login_count + 1"),
			"locked_until":       gorm.Expr("CASE WHEN failed_login_count + 1 >= ? THEN ? ELSE locked_until END", maxAttempts, lockUntil),
		}).Error
	if err != nil {
		return unavailable("recording failed login", err)
	}
	return nil
}

func (r *UserRepository) RecordSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	err := db.Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failed_login_count": 0,
			"locked_until":       nil,
			"last_login_at":      at,
		}).Error
	if err != nil {
		return unavailable("recording login", err)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	res := db.Model(&domain.User{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return unavailable("updating password", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
