package api

import (
	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/server"
	"github.com/skillsenselab/tubescribe/internal/server/middleware"
	"github.com/skillsenselab/tubescribe/internal/store"
	"github.com/skillsenselab/tubescribe/internal/validation"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token        string      `json:"token"`
	User         *store.User `json:"user"`
	TempPassword bool        `json:"temp_password"`
}

// Login authenticates with email and password and returns a bearer
// token.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, loginResponse{
		Token:        res.Token,
		User:         res.User,
		TempPassword: res.TempPassword,
	})
}

// Logout acknowledges the logout. Tokens are stateless; the client drops
// its copy.
func (h *Handlers) Logout(c *gin.Context) {
	server.RespondOK(c, gin.H{"message": "Logged out."})
}

// CurrentUser returns the authenticated caller.
func (h *Handlers) CurrentUser(c *gin.Context) {
	p := middleware.MustPrincipal(c)
	user, err := h.store.GetUserByID(c.Request.Context(), p.UserID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{
		"authenticated": true,
		"user":          user,
		"temp_password": user.TempPassword,
	})
}

type requestAccountRequest struct {
	Email string `json:"email" validate:"required"`
}

// RequestAccount records a registration request for admin review.
func (h *Handlers) RequestAccount(c *gin.Context) {
	var req requestAccountRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.accounts.RequestAccount(c.Request.Context(), req.Email); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{
		"message": "Account request submitted. You will receive an email once it is reviewed.",
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ChangePassword updates the caller's password and clears the
// temporary-password flag.
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	p := middleware.MustPrincipal(c)
	if err := h.accounts.ChangePassword(c.Request.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"message": "Password changed."})
}

// bind decodes the JSON body and applies struct validation.
func bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperr.Validation("Invalid request body.").WithCause(err)
	}
	return validation.Validate(req)
}
