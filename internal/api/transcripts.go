package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/tubescribe/internal/pdf"
	"github.com/skillsenselab/tubescribe/internal/server"
	"github.com/skillsenselab/tubescribe/internal/server/middleware"
)

type transcribeRequest struct {
	YoutubeURL string `json:"youtube_url" validate:"required"`
}

// Transcribe runs the transcription pipeline for a URL. The request
// blocks until the transcript is ready; duplicates return quickly.
func (h *Handlers) Transcribe(c *gin.Context) {
	var req transcribeRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	p := middleware.MustPrincipal(c)
	res, err := h.pipeline.Transcribe(c.Request.Context(), p.UserID, req.YoutubeURL)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{
		"transcript": res.Transcript,
		"duplicated": res.Duplicate,
		"degraded":   res.Degraded,
	})
}

// History lists the caller's transcripts newest first. Admins may pass
// ?all=true to see every user's transcripts.
func (h *Handlers) History(c *gin.Context) {
	p := middleware.MustPrincipal(c)

	if c.Query("all") == "true" && p.IsAdmin {
		items, err := h.store.ListAllTranscripts(c.Request.Context())
		if err != nil {
			server.RespondWithError(c, err)
			return
		}
		server.RespondOK(c, gin.H{"transcripts": items, "count": len(items)})
		return
	}

	items, err := h.store.ListUserTranscripts(c.Request.Context(), p.UserID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"transcripts": items, "count": len(items)})
}

// GetTranscript returns one transcript with full text. Users only see
// their own; admins see any.
func (h *Handlers) GetTranscript(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	t, err := h.store.GetTranscript(c.Request.Context(), id, ownerFilter(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, t)
}

// DeleteTranscript removes a transcript. Users only delete their own;
// admins delete any.
func (h *Handlers) DeleteTranscript(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.store.DeleteTranscript(c.Request.Context(), id, ownerFilter(c)); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

// DownloadPDF streams a transcript as a PDF document. The version path
// segment selects the clean or formatted text.
func (h *Handlers) DownloadPDF(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	version := c.Param("version")

	t, err := h.store.GetTranscript(c.Request.Context(), id, ownerFilter(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	data, err := h.renderer.Render(t, version)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.Filename(t, version)))
	c.Data(200, "application/pdf", data)
}

// ownerFilter returns the user ID to scope transcript access by, or 0
// for admins, which disables the ownership check.
func ownerFilter(c *gin.Context) uint {
	p := middleware.MustPrincipal(c)
	if p.IsAdmin {
		return 0
	}
	return p.UserID
}
