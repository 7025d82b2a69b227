package accounts_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/skillsenselab/tubescribe/internal/accounts"
	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/auth"
	"github.com/skillsenselab/tubescribe/internal/config"
	"github.com/skillsenselab/tubescribe/internal/logger"
	"github.com/skillsenselab/tubescribe/internal/mail"
	"github.com/skillsenselab/tubescribe/internal/ratelimit"
	"github.com/skillsenselab/tubescribe/internal/store"
)

type sentMail struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (m *sentMail) deliver(_ context.Context, msg *gomail.Msg) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.subjects = append(m.subjects, msg.GetGenHeader(gomail.HeaderSubject)...)
	return nil
}

func (m *sentMail) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subjects)
}

type fixture struct {
	svc    *accounts.Service
	store  *store.Store
	mailed *sentMail
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewDefault("test")

	st, err := store.OpenInMemory(log)
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	mailed := &sentMail{}
	smtpCfg := config.SMTPConfig{From: "noreply@example.com", AppName: "Test", AppURL: "http://localhost"}
	sender := mail.NewWithDeliver(smtpCfg, mailed.deliver, log)

	rlCfg := config.RateLimitConfig{}
	rlCfg.ApplyDefaults()

	authCfg := config.AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef", TokenTTL: time.Hour}
	svc := accounts.New(
		st,
		auth.NewBcryptHasher(4),
		auth.NewTokenService(authCfg),
		sender,
		ratelimit.NewMemory(),
		rlCfg,
		log,
	)
	return &fixture{svc: svc, store: st, mailed: mailed}
}

func (f *fixture) seedUser(t *testing.T, email, password, role, status string) *store.User {
	t.Helper()
	hash, err := auth.NewBcryptHasher(4).Hash(password)
	if err != nil {
		t.Fatal(err)
	}
	u := &store.User{Email: email, PasswordHash: hash, Role: role, Status: status}
	if err := f.store.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func codeOf(err error) apperr.ErrorCode {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "user@example.com", "Correct&Horse1Battery", store.RoleUser, store.UserActive)

	res, err := f.svc.Login(ctx, "User@Example.com", "Correct&Horse1Battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" {
		t.Error("empty token")
	}
	if res.User.Email != "user@example.com" {
		t.Errorf("user email = %q", res.User.Email)
	}

	// Last login is recorded.
	u, _ := f.store.GetUserByEmail(ctx, "user@example.com")
	if u.LastLogin == nil {
		t.Error("LastLogin not set")
	}
}

func TestLogin_WrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "user@example.com", "Correct&Horse1Battery", store.RoleUser, store.UserActive)

	_, err1 := f.svc.Login(ctx, "user@example.com", "wrong")
	_, err2 := f.svc.Login(ctx, "ghost@example.com", "whatever")

	if codeOf(err1) != apperr.ErrCodeUnauthorized || codeOf(err2) != apperr.ErrCodeUnauthorized {
		t.Fatalf("errors = %v, %v; want both UNAUTHORIZED", err1, err2)
	}
	if err1.Error() != err2.Error() {
		t.Errorf("wrong-password and unknown-user responses differ: %q vs %q", err1, err2)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "user@example.com", "Correct&Horse1Battery", store.RoleUser, store.UserDisabled)

	_, err := f.svc.Login(ctx, "user@example.com", "Correct&Horse1Battery")
	if codeOf(err) != apperr.ErrCodeForbidden {
		t.Fatalf("error = %v, want FORBIDDEN", err)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "user@example.com", "Correct&Horse1Battery", store.RoleUser, store.UserActive)

	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(ctx, "user@example.com", "wrong")
	}
	_, err := f.svc.Login(ctx, "user@example.com", "Correct&Horse1Battery")
	if codeOf(err) != apperr.ErrCodeRateLimited {
		t.Fatalf("error = %v, want RATE_LIMITED", err)
	}

	// Other addresses are unaffected.
	f.seedUser(t, "other@example.com", "Correct&Horse1Battery", store.RoleUser, store.UserActive)
	if _, err := f.svc.Login(ctx, "other@example.com", "Correct&Horse1Battery"); err != nil {
		t.Fatalf("other address: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Account requests
// ---------------------------------------------------------------------------

func TestRequestAccount_NotifiesAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "admin@example.com", "Correct&Horse1Battery", store.RoleAdmin, store.UserActive)

	if err := f.svc.RequestAccount(ctx, "new@example.com"); err != nil {
		t.Fatalf("RequestAccount: %v", err)
	}
	if f.mailed.count() != 1 {
		t.Errorf("admin notifications = %d, want 1", f.mailed.count())
	}

	pending, err := f.svc.PendingRequests(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Email != "new@example.com" {
		t.Fatalf("pending = %+v", pending)
	}
}

func TestRequestAccount_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "taken@example.com", "Correct&Horse1Battery", store.RoleUser, store.UserActive)

	tests := []struct {
		name  string
		email string
		want  apperr.ErrorCode
	}{
		{"invalid format", "not-an-email", apperr.ErrCodeInvalidInput},
		{"disposable domain", "x@mailinator.com", apperr.ErrCodeInvalidInput},
		{"existing account", "taken@example.com", apperr.ErrCodeAlreadyExists},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := f.svc.RequestAccount(ctx, tc.email); codeOf(err) != tc.want {
				t.Fatalf("error = %v, want %s", err, tc.want)
			}
		})
	}
}

func TestRequestAccount_DuplicatePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.RequestAccount(ctx, "new@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.RequestAccount(ctx, "new@example.com"); codeOf(err) != apperr.ErrCodeAlreadyExists {
		t.Fatalf("error = %v, want ALREADY_EXISTS", err)
	}
}

// ---------------------------------------------------------------------------
// Approve / Reject
// ---------------------------------------------------------------------------

func TestApprove_CreatesActiveUserWithTempPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "admin@example.com", "Correct&Horse1Battery", store.RoleAdmin, store.UserActive)

	if err := f.svc.RequestAccount(ctx, "new@example.com"); err != nil {
		t.Fatal(err)
	}
	pending, _ := f.svc.PendingRequests(ctx)

	returned, err := f.svc.Approve(ctx, pending[0].ID, admin.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	// Mail is configured in the fixture, so the password travels by email only.
	if returned != "" {
		t.Errorf("temp password returned despite mail being enabled")
	}

	u, err := f.store.GetUserByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("approved user missing: %v", err)
	}
	if u.Status != store.UserActive || !u.TempPassword || u.Role != store.RoleUser {
		t.Fatalf("user = %+v", u)
	}

	// Second approval conflicts.
	if _, err := f.svc.Approve(ctx, pending[0].ID, admin.ID); codeOf(err) != apperr.ErrCodeConflict {
		t.Fatalf("re-approve = %v, want CONFLICT", err)
	}
}

func TestApprove_ReturnsTempPasswordWhenEmailFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "admin@example.com", "Correct&Horse1Battery", store.RoleAdmin, store.UserActive)

	if err := f.svc.RequestAccount(ctx, "new@example.com"); err != nil {
		t.Fatal(err)
	}
	pending, _ := f.svc.PendingRequests(ctx)

	// Mail is configured but delivery breaks: the credential must come
	// back to the approving admin instead of being lost.
	f.mailed.err = errors.New("smtp: connection refused")
	returned, err := f.svc.Approve(ctx, pending[0].ID, admin.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if returned == "" {
		t.Fatal("temp password lost: delivery failed and nothing was returned")
	}

	res, err := f.svc.Login(ctx, "new@example.com", returned)
	if err != nil {
		t.Fatalf("login with returned temp password: %v", err)
	}
	if !res.TempPassword {
		t.Error("temp password flag not set on first login")
	}
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "admin@example.com", "Correct&Horse1Battery", store.RoleAdmin, store.UserActive)

	if err := f.svc.RequestAccount(ctx, "new@example.com"); err != nil {
		t.Fatal(err)
	}
	pending, _ := f.svc.PendingRequests(ctx)

	if err := f.svc.Reject(ctx, pending[0].ID, admin.ID, "unknown requester"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := f.store.GetUserByEmail(ctx, "new@example.com"); codeOf(err) != apperr.ErrCodeNotFound {
		t.Fatal("rejected request created a user")
	}
	if err := f.svc.Reject(ctx, pending[0].ID, admin.ID, ""); codeOf(err) != apperr.ErrCodeConflict {
		t.Fatalf("re-reject = %v, want CONFLICT", err)
	}
}

// ---------------------------------------------------------------------------
// Password change
// ---------------------------------------------------------------------------

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.seedUser(t, "user@example.com", "Old&Password1Phrase", store.RoleUser, store.UserActive)
	if err := f.store.UpdateUserPassword(ctx, u.ID, u.PasswordHash, true); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		current string
		next    string
		want    apperr.ErrorCode
	}{
		{"wrong current", "nope", "New&Password1Phrase", apperr.ErrCodeUnauthorized},
		{"same as current", "Old&Password1Phrase", "Old&Password1Phrase", apperr.ErrCodeInvalidInput},
		{"too weak", "Old&Password1Phrase", "short", apperr.ErrCodeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := f.svc.ChangePassword(ctx, u.ID, tc.current, tc.next); codeOf(err) != tc.want {
				t.Fatalf("error = %v, want %s", err, tc.want)
			}
		})
	}

	if err := f.svc.ChangePassword(ctx, u.ID, "Old&Password1Phrase", "New&Password1Phrase"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	got, _ := f.store.GetUserByID(ctx, u.ID)
	if got.TempPassword {
		t.Error("temp flag not cleared")
	}
	if _, err := f.svc.Login(ctx, "user@example.com", "New&Password1Phrase"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

// ---------------------------------------------------------------------------
// User status
// ---------------------------------------------------------------------------

func TestSetUserStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "admin@example.com", "Correct&Horse1Battery", store.RoleAdmin, store.UserActive)
	user := f.seedUser(t, "user@example.com", "Correct&Horse1Battery", store.RoleUser, store.UserActive)
	other := f.seedUser(t, "other-admin@example.com", "Correct&Horse1Battery", store.RoleAdmin, store.UserActive)

	if err := f.svc.SetUserStatus(ctx, user.ID, admin.ID, store.UserDisabled); err != nil {
		t.Fatalf("disable: %v", err)
	}
	got, _ := f.store.GetUserByID(ctx, user.ID)
	if got.Status != store.UserDisabled {
		t.Errorf("status = %q", got.Status)
	}

	if err := f.svc.SetUserStatus(ctx, admin.ID, admin.ID, store.UserDisabled); codeOf(err) != apperr.ErrCodeConflict {
		t.Fatalf("self-disable = %v, want CONFLICT", err)
	}
	if err := f.svc.SetUserStatus(ctx, other.ID, admin.ID, store.UserDisabled); codeOf(err) != apperr.ErrCodeConflict {
		t.Fatalf("disable admin = %v, want CONFLICT", err)
	}
	if err := f.svc.SetUserStatus(ctx, user.ID, admin.ID, "frozen"); codeOf(err) != apperr.ErrCodeInvalidInput {
		t.Fatalf("bad status = %v, want INVALID_INPUT", err)
	}
}

// ---------------------------------------------------------------------------
// Admin seeding
// ---------------------------------------------------------------------------

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg := config.AuthConfig{AdminEmail: "Admin@Example.com", AdminPassword: "Seed&Password1Phrase"}
	if err := f.svc.EnsureAdmin(ctx, cfg); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}

	u, err := f.store.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("seeded admin missing: %v", err)
	}
	if u.Role != store.RoleAdmin || u.Status != store.UserActive {
		t.Fatalf("admin = %+v", u)
	}

	// Idempotent: a second call with different credentials changes nothing.
	cfg.AdminEmail = "another@example.com"
	if err := f.svc.EnsureAdmin(ctx, cfg); err != nil {
		t.Fatalf("second EnsureAdmin: %v", err)
	}
	if _, err := f.store.GetUserByEmail(ctx, "another@example.com"); codeOf(err) != apperr.ErrCodeNotFound {
		t.Fatal("second admin was seeded")
	}
}

func TestEnsureAdmin_NoCredentials(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.EnsureAdmin(context.Background(), config.AuthConfig{}); err != nil {
		t.Fatalf("EnsureAdmin without credentials should be a no-op, got %v", err)
	}
}
