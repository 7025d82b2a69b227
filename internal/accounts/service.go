// Package accounts implements the account lifecycle: login, registration
// requests, admin review, and password management.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/auth"
	"github.com/skillsenselab/tubescribe/internal/config"
	"github.com/skillsenselab/tubescribe/internal/logger"
	"github.com/skillsenselab/tubescribe/internal/mail"
	"github.com/skillsenselab/tubescribe/internal/ratelimit"
	"github.com/skillsenselab/tubescribe/internal/store"
)

// Service wires account operations on top of the store, the credential
// helpers, mail, and rate limiting.
type Service struct {
	store  *store.Store
	hasher auth.Hasher
	tokens *auth.TokenService
	mailer *mail.Sender
	limits ratelimit.Store
	cfg    config.RateLimitConfig
	log    *logger.Logger
}

// New creates the account service.
func New(st *store.Store, hasher auth.Hasher, tokens *auth.TokenService, mailer *mail.Sender, limits ratelimit.Store, cfg config.RateLimitConfig, log *logger.Logger) *Service {
	return &Service{
		store:  st,
		hasher: hasher,
		tokens: tokens,
		mailer: mailer,
		limits: limits,
		cfg:    cfg,
		log:    log.WithComponent("accounts"),
	}
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token        string
	User         *store.User
	TempPassword bool
}

// Login authenticates a user and issues a session token. Attempts are
// rate limited per email so a credential-stuffing run locks the address,
// not the whole service.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required.")
	}

	allowed, _ := s.limits.Check("login:"+email, s.cfg.LoginMax, s.cfg.LoginWindow)
	if !allowed {
		s.log.Warn("login rate limited", logger.Fields(logger.FieldEmail, email))
		return nil, apperr.RateLimited()
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			// Same response as a bad password so the endpoint does not
			// leak which addresses have accounts.
			return nil, apperr.Unauthorized("Invalid email or password.")
		}
		return nil, err
	}
	if err := s.hasher.Verify(password, user.PasswordHash); err != nil {
		return nil, apperr.Unauthorized("Invalid email or password.")
	}
	if !user.IsActive() {
		return nil, apperr.Forbidden("Account is not active. Contact an administrator.")
	}

	token, err := s.tokens.Generate(user.ID, user.Email, user.IsAdmin(), user.TempPassword)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.store.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("update last login failed", logger.ErrorFields("touch_last_login", err))
	}

	s.log.Info("login", logger.Fields(logger.FieldUserID, user.ID, logger.FieldEmail, user.Email))
	return &LoginResult{Token: token, User: user, TempPassword: user.TempPassword}, nil
}

// RequestAccount records a registration request and notifies admins.
// Requests are rate limited per address.
func (s *Service) RequestAccount(ctx context.Context, email string) error {
	email, err := auth.ValidateEmail(email)
	if err != nil {
		return err
	}

	allowed, _ := s.limits.Check("request:"+email, s.cfg.RequestMax, s.cfg.RequestWindow)
	if !allowed {
		return apperr.RateLimited()
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return apperr.AlreadyExists("account")
	} else if !isNotFound(err) {
		return err
	}

	req, err := s.store.CreateAccountRequest(ctx, email)
	if err != nil {
		return err
	}
	s.log.Info("account requested", logger.Fields(logger.FieldEmail, email, "request_id", req.ID))

	// Notification failures must not fail the request itself.
	admins, err := s.store.AdminEmails(ctx)
	if err != nil {
		s.log.Warn("load admin emails failed", logger.ErrorFields("admin_emails", err))
		return nil
	}
	for _, admin := range admins {
		if err := s.mailer.SendAccountRequestNotification(ctx, admin, email); err != nil {
			s.log.Warn("admin notification failed", logger.Fields(logger.FieldError, err.Error(), logger.FieldEmail, admin))
		}
	}
	return nil
}

// PendingRequests lists requests awaiting review, oldest first.
func (s *Service) PendingRequests(ctx context.Context) ([]store.AccountRequest, error) {
	return s.store.PendingRequests(ctx)
}

// Approve turns a pending request into an active account with a generated
// temporary password and emails the credentials to the requester. When
// mail is disabled the temporary password is returned to the approving
// admin instead.
func (s *Service) Approve(ctx context.Context, requestID, adminID uint) (tempPassword string, err error) {
	req, err := s.store.GetAccountRequest(ctx, requestID)
	if err != nil {
		return "", err
	}

	tempPassword, err = auth.GenerateTempPassword()
	if err != nil {
		return "", apperr.Internal(err)
	}
	hash, err := s.hasher.Hash(tempPassword)
	if err != nil {
		return "", apperr.Internal(err)
	}

	if err := s.store.MarkRequestApproved(ctx, requestID, adminID); err != nil {
		return "", err
	}
	user := &store.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         store.RoleUser,
		Status:       store.UserActive,
		TempPassword: true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return "", err
	}

	s.log.Info("account approved", logger.Fields(
		logger.FieldEmail, req.Email, "request_id", requestID, "admin_id", adminID))

	// The credential only exists here. If it cannot reach the user by
	// mail the approving admin gets it in the response instead.
	if !s.mailer.Enabled() {
		return tempPassword, nil
	}
	if err := s.mailer.SendAccountApproved(ctx, req.Email, tempPassword); err != nil {
		s.log.Warn("approval email failed", logger.ErrorFields("send_approved", err))
		return tempPassword, nil
	}
	return "", nil
}

// Reject marks a pending request rejected and notifies the requester.
func (s *Service) Reject(ctx context.Context, requestID, adminID uint, reason string) error {
	req, err := s.store.GetAccountRequest(ctx, requestID)
	if err != nil {
		return err
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	if err := s.store.MarkRequestRejected(ctx, requestID, adminID, reasonPtr); err != nil {
		return err
	}
	s.log.Info("account rejected", logger.Fields(
		logger.FieldEmail, req.Email, "request_id", requestID, "admin_id", adminID))

	if err := s.mailer.SendAccountRejected(ctx, req.Email, reason); err != nil {
		s.log.Warn("rejection email failed", logger.ErrorFields("send_rejected", err))
	}
	return nil
}

// ChangePassword verifies the current password, enforces the strength
// policy on the new one, and clears the temporary-password flag.
func (s *Service) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Verify(current, user.PasswordHash); err != nil {
		return apperr.Unauthorized("Current password is incorrect.")
	}
	if current == next {
		return apperr.Validation("New password must differ from the current password.")
	}
	if err := auth.ValidatePasswordStrength(next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash, false); err != nil {
		return err
	}
	s.log.Info("password changed", logger.Fields(logger.FieldUserID, userID))

	if err := s.mailer.SendPasswordChanged(ctx, user.Email); err != nil {
		s.log.Warn("password change email failed", logger.ErrorFields("send_password_changed", err))
	}
	return nil
}

// ListUsers returns all accounts for the admin dashboard.
func (s *Service) ListUsers(ctx context.Context) ([]store.User, error) {
	return s.store.ListUsers(ctx)
}

// SetUserStatus enables or disables an account. Admins cannot change
// their own status, and the last admin cannot be disabled.
func (s *Service) SetUserStatus(ctx context.Context, targetID, adminID uint, status string) error {
	if status != store.UserActive && status != store.UserDisabled {
		return apperr.InvalidInput("status", fmt.Sprintf("unknown status %q", status))
	}
	if targetID == adminID {
		return apperr.Conflict("You cannot change the status of your own account.")
	}
	target, err := s.store.GetUserByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.IsAdmin() && status == store.UserDisabled {
		return apperr.Conflict("Admin accounts cannot be disabled.")
	}
	if err := s.store.UpdateUserStatus(ctx, targetID, status); err != nil {
		return err
	}
	s.log.Info("user status changed", logger.Fields(
		logger.FieldUserID, targetID, "status", status, "admin_id", adminID))
	return nil
}

// EnsureAdmin seeds the initial admin account from configuration when no
// admin exists yet. Safe to call on every startup.
func (s *Service) EnsureAdmin(ctx context.Context, cfg config.AuthConfig) error {
	exists, err := s.store.HasAdmin(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		s.log.Warn("no admin account and no admin credentials configured")
		return nil
	}

	email := auth.NormalizeEmail(cfg.AdminEmail)
	hash, err := s.hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("accounts: hash admin password: %w", err)
	}
	admin := &store.User{
		Email:        email,
		PasswordHash: hash,
		Role:         store.RoleAdmin,
		Status:       store.UserActive,
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		// Lost a race with another instance seeding the same admin.
		var appErr *apperr.AppError
		if errors.As(err, &appErr) && appErr.Code == apperr.ErrCodeAlreadyExists {
			return nil
		}
		return err
	}
	s.log.Info("admin account seeded", logger.Fields(logger.FieldEmail, email))
	return nil
}

// Stats returns the admin dashboard counters.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.GetStats(ctx)
}

func isNotFound(err error) bool {
	var appErr *apperr.AppError
	return errors.As(err, &appErr) && appErr.Code == apperr.ErrCodeNotFound
}
