package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/auth"
	"github.com/skillsenselab/tubescribe/internal/logger"
	"github.com/skillsenselab/tubescribe/internal/server"
	"github.com/skillsenselab/tubescribe/internal/store"
)

const principalKey = "principal"

// Principal is the authenticated caller, loaded fresh from the store so
// status changes take effect immediately rather than at token expiry.
type Principal struct {
	UserID       uint
	Email        string
	IsAdmin      bool
	TempPassword bool
	// Legacy marks callers authenticated with the shared pre-multiuser
	// password instead of a personal token.
	Legacy bool
}

// Authenticator validates bearer credentials and attaches a Principal to
// the request context.
type Authenticator struct {
	tokens *auth.TokenService
	store  *store.Store
	// legacyPassword, when set, is accepted as a bearer token and
	// authenticates as the configured admin account.
	legacyPassword string
	adminEmail     string
	log            *logger.Logger
}

// NewAuthenticator creates the authentication middleware provider.
func NewAuthenticator(tokens *auth.TokenService, st *store.Store, legacyPassword, adminEmail string, log *logger.Logger) *Authenticator {
	return &Authenticator{
		tokens:         tokens,
		store:          st,
		legacyPassword: legacyPassword,
		adminEmail:     auth.NormalizeEmail(adminEmail),
		log:            log.WithComponent("auth"),
	}
}

// RequireAuth validates the Authorization header and loads the caller.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, apperr.Unauthorized("Authorization header required."))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, apperr.Unauthorized("Invalid authorization header format."))
			return
		}
		token := parts[1]

		if a.legacyPassword != "" && token == a.legacyPassword {
			a.legacyLogin(c)
			return
		}

		claims, err := a.tokens.Parse(token)
		if err != nil {
			abort(c, err)
			return
		}

		user, err := a.store.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			abort(c, apperr.Unauthorized("Invalid or expired token."))
			return
		}
		if !user.IsActive() {
			abort(c, apperr.Forbidden("Account is not active."))
			return
		}

		c.Set(principalKey, &Principal{
			UserID:       user.ID,
			Email:        user.Email,
			IsAdmin:      user.IsAdmin(),
			TempPassword: user.TempPassword,
		})
		c.Next()
	}
}

// legacyLogin authenticates a shared-password caller as the configured
// admin account.
func (a *Authenticator) legacyLogin(c *gin.Context) {
	if a.adminEmail == "" {
		abort(c, apperr.Unauthorized("Legacy authentication is not available."))
		return
	}
	user, err := a.store.GetUserByEmail(c.Request.Context(), a.adminEmail)
	if err != nil {
		abort(c, apperr.Unauthorized("Legacy authentication is not available."))
		return
	}
	a.log.Debug("legacy password authentication", logger.Fields(logger.FieldEmail, user.Email))
	c.Set(principalKey, &Principal{
		UserID:       user.ID,
		Email:        user.Email,
		IsAdmin:      user.IsAdmin(),
		TempPassword: user.TempPassword,
		Legacy:       true,
	})
	c.Next()
}

// RequireAdmin rejects non-admin callers. Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := MustPrincipal(c)
		if !p.IsAdmin {
			abort(c, apperr.Forbidden("Admin access required."))
			return
		}
		c.Next()
	}
}

// RequirePasswordChanged blocks users still on a temporary password.
// The password-change and session routes are registered without it.
func RequirePasswordChanged() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := MustPrincipal(c)
		if p.TempPassword {
			abort(c, apperr.Forbidden("Password change required before using this endpoint."))
			return
		}
		c.Next()
	}
}

// MustPrincipal returns the authenticated caller. Panics when called on
// a route without RequireAuth.
func MustPrincipal(c *gin.Context) *Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		panic("middleware: principal missing, route not behind RequireAuth")
	}
	return v.(*Principal)
}

func abort(c *gin.Context, err error) {
	server.RespondWithError(c, err)
	c.Abort()
}
