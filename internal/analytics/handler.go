package analytics

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tapandtrack-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/analytics/session/:code", h.GetSessionStats)
	r.GET("/analytics/owner/:id", h.GetOwnerOverview)
	r.GET("/analytics/attendee/:id", h.GetAttendeeOverview)
	r.GET("/analytics/export/:code", h.ExportSession)
}

// GET /analytics/session/:code
func (h *Handler) GetSessionStats(c *gin.Context) {
	res, err := h.svc.SessionStats(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": res})
}

// GET /analytics/owner/:id
func (h *Handler) GetOwnerOverview(c *gin.Context) {
	res, err := h.svc.OwnerOverview(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": res})
}

// GET /analytics/attendee/:id
func (h *Handler) GetAttendeeOverview(c *gin.Context) {
	res, err := h.svc.AttendeeOverview(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": res})
}

// GET /analytics/export/:code
func (h *Handler) ExportSession(c *gin.Context) {
	res, err := h.svc.ExportSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func respondError(c *gin.Context, err error) {
	status := apperr.ToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] analytics: %v", err)
	}
	c.JSON(status, apperr.FromErr(err))
}
