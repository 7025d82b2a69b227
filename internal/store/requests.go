package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/skillsenselab/tubescribe/internal/apperr"
)

// CreateAccountRequest queues a pending request. At most one pending
// request may exist per email at a time.
func (s *Store) CreateAccountRequest(ctx context.Context, email string) (*AccountRequest, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing AccountRequest
	err := s.db.WithContext(ctx).
		Where("email = ? AND status = ?", email, RequestPending).
		First(&existing).Error
	if err == nil {
		return nil, apperr.AlreadyExists("pending account request")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.DatabaseError(err)
	}

	req := &AccountRequest{Email: email, Status: RequestPending}
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return req, nil
}

// GetAccountRequest fetches one request.
func (s *Store) GetAccountRequest(ctx context.Context, id uint) (*AccountRequest, error) {
	var req AccountRequest
	err := s.db.WithContext(ctx).First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("account request", "")
	}
	if err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return &req, nil
}

// PendingRequests lists all pending requests, newest first.
func (s *Store) PendingRequests(ctx context.Context) ([]AccountRequest, error) {
	var reqs []AccountRequest
	err := s.db.WithContext(ctx).
		Where("status = ?", RequestPending).
		Order("requested_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return reqs, nil
}

// MarkRequestApproved transitions a pending request to approved. The
// WHERE clause on status makes the transition terminal: approving a
// processed request affects zero rows and surfaces as a conflict.
func (s *Store) MarkRequestApproved(ctx context.Context, id, adminID uint) error {
	return s.markProcessed(ctx, id, adminID, RequestApproved, nil)
}

// MarkRequestRejected transitions a pending request to rejected.
func (s *Store) MarkRequestRejected(ctx context.Context, id, adminID uint, reason *string) error {
	return s.markProcessed(ctx, id, adminID, RequestRejected, reason)
}

func (s *Store) markProcessed(ctx context.Context, id, adminID uint, status string, reason *string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"processed_at": &now,
		"processed_by": adminID,
	}
	if reason != nil {
		updates["rejection_reason"] = reason
	}

	res := s.db.WithContext(ctx).Model(&AccountRequest{}).
		Where("id = ? AND status = ?", id, RequestPending).
		Updates(updates)
	if res.Error != nil {
		return apperr.DatabaseError(res.Error)
	}
	if res.RowsAffected == 0 {
		// Either missing or already processed; disambiguate for the caller.
		if _, err := s.GetAccountRequest(ctx, id); err != nil {
			return err
		}
		return apperr.Conflict("Account request was already processed.")
	}
	return nil
}
