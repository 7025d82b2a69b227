package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/server"
	"github.com/skillsenselab/tubescribe/internal/server/middleware"
	"github.com/skillsenselab/tubescribe/internal/store"
)

// PendingRequests lists account requests awaiting review.
func (h *Handlers) PendingRequests(c *gin.Context) {
	requests, err := h.accounts.PendingRequests(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"requests": requests, "count": len(requests)})
}

// ApproveRequest approves a pending account request. When mail is not
// configured the generated temporary password is returned so the admin
// can hand it over out of band.
func (h *Handlers) ApproveRequest(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	p := middleware.MustPrincipal(c)
	tempPassword, err := h.accounts.Approve(c.Request.Context(), id, p.UserID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	resp := gin.H{"message": "Account request approved."}
	if tempPassword != "" {
		resp["temp_password"] = tempPassword
	}
	server.RespondOK(c, resp)
}

type rejectRequestBody struct {
	Reason string `json:"reason"`
}

// RejectRequest rejects a pending account request with an optional
// reason.
func (h *Handlers) RejectRequest(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	var body rejectRequestBody
	// The body is optional; an empty reason is fine.
	_ = c.ShouldBindJSON(&body)

	p := middleware.MustPrincipal(c)
	if err := h.accounts.Reject(c.Request.Context(), id, p.UserID, body.Reason); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"message": "Account request rejected."})
}

// ListUsers returns all accounts.
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.accounts.ListUsers(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"users": users, "count": len(users)})
}

// DisableUser deactivates an account.
func (h *Handlers) DisableUser(c *gin.Context) {
	h.setUserStatus(c, store.UserDisabled)
}

// EnableUser reactivates an account.
func (h *Handlers) EnableUser(c *gin.Context) {
	h.setUserStatus(c, store.UserActive)
}

func (h *Handlers) setUserStatus(c *gin.Context, status string) {
	id, err := pathID(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	p := middleware.MustPrincipal(c)
	if err := h.accounts.SetUserStatus(c.Request.Context(), id, p.UserID, status); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"message": "User status updated.", "status": status})
}

// Stats returns the admin dashboard counters.
func (h *Handlers) Stats(c *gin.Context) {
	stats, err := h.accounts.Stats(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, stats)
}

// pathID parses the :id path parameter.
func pathID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.InvalidInput("id", "must be a positive integer")
	}
	return uint(id), nil
}
