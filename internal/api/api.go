// Package api registers the HTTP routes and their handlers.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/tubescribe/internal/accounts"
	"github.com/skillsenselab/tubescribe/internal/logger"
	"github.com/skillsenselab/tubescribe/internal/pdf"
	"github.com/skillsenselab/tubescribe/internal/pipeline"
	"github.com/skillsenselab/tubescribe/internal/server"
	"github.com/skillsenselab/tubescribe/internal/server/middleware"
	"github.com/skillsenselab/tubescribe/internal/store"
)

// Handlers carries the services the routes are built on.
type Handlers struct {
	accounts *accounts.Service
	pipeline *pipeline.Service
	store    *store.Store
	renderer *pdf.Renderer
	log      *logger.Logger
}

// New creates the handler set.
func New(acc *accounts.Service, pipe *pipeline.Service, st *store.Store, renderer *pdf.Renderer, log *logger.Logger) *Handlers {
	return &Handlers{
		accounts: acc,
		pipeline: pipe,
		store:    st,
		renderer: renderer,
		log:      log.WithComponent("api"),
	}
}

// Register attaches all routes to the engine. The ambient middleware
// chain (recovery, request IDs, CORS, logging) is expected to be
// installed by the caller.
func (h *Handlers) Register(engine *gin.Engine, authn *middleware.Authenticator) {
	engine.GET("/health", h.Health)

	engine.POST("/auth/login", h.Login)
	engine.POST("/auth/request-account", h.RequestAccount)

	// Session routes stay reachable on a temporary password so the user
	// can complete the forced change.
	session := engine.Group("/auth", authn.RequireAuth())
	session.POST("/logout", h.Logout)
	session.GET("/current-user", h.CurrentUser)
	session.POST("/change-password", h.ChangePassword)

	authed := engine.Group("/", authn.RequireAuth(), middleware.RequirePasswordChanged())
	authed.POST("/transcribe", h.Transcribe)
	authed.GET("/history", h.History)
	authed.GET("/transcript/:id", h.GetTranscript)
	authed.DELETE("/transcript/:id", h.DeleteTranscript)
	authed.GET("/download-pdf/:id/:version", h.DownloadPDF)

	admin := engine.Group("/admin", authn.RequireAuth(), middleware.RequirePasswordChanged(), middleware.RequireAdmin())
	admin.GET("/pending-requests", h.PendingRequests)
	admin.POST("/approve-request/:id", h.ApproveRequest)
	admin.POST("/reject-request/:id", h.RejectRequest)
	admin.GET("/users", h.ListUsers)
	admin.POST("/users/:id/disable", h.DisableUser)
	admin.POST("/users/:id/enable", h.EnableUser)
	admin.GET("/stats", h.Stats)
}

// Health reports service liveness and database reachability.
func (h *Handlers) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	if err := h.store.Ping(); err != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}
	server.RespondOK(c, gin.H{"status": status, "database": dbStatus})
}
