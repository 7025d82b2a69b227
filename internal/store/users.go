package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/skillsenselab/tubescribe/internal/apperr"
)

// CreateUser inserts a new user. The email is lowercased before insert;
// a unique-constraint hit maps to an already-exists error.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint") {
			return apperr.AlreadyExists("user")
		}
		return apperr.DatabaseError(err)
	}
	return nil
}

// GetUserByID fetches one user.
func (s *Store) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user", "")
	}
	if err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return &u, nil
}

// GetUserByEmail fetches one user by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user", "")
	}
	if err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return &u, nil
}

// ListUsers returns all users, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return users, nil
}

// AdminEmails returns the addresses of all active admins.
func (s *Store) AdminEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("role = ? AND status = ?", RoleAdmin, UserActive).
		Pluck("email", &emails).Error
	if err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return emails, nil
}

// HasAdmin reports whether any admin account exists.
func (s *Store) HasAdmin(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("role = ?", RoleAdmin).Count(&count).Error; err != nil {
		return false, apperr.DatabaseError(err)
	}
	return count > 0, nil
}

// UpdateUserPassword replaces the password hash and temp flag.
func (s *Store) UpdateUserPassword(ctx context.Context, id uint, hash string, temp bool) error {
	err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"password_hash": hash, "temp_password": temp}).Error
	if err != nil {
		return apperr.DatabaseError(err)
	}
	return nil
}

// UpdateUserStatus sets the user status (active/disabled).
func (s *Store) UpdateUserStatus(ctx context.Context, id uint, status string) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return apperr.DatabaseError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user", "")
	}
	return nil
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, id uint) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login", &now).Error
	if err != nil {
		return apperr.DatabaseError(err)
	}
	return nil
}
