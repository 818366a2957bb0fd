package attendance

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tapandtrack-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service, allowedOrigins []string) {
	h := &Handler{svc: svc}

	r.POST("/attendance", h.RecordAttendance)
	r.GET("/attendance/session/:code", h.GetSessionAttendance)
	r.GET("/attendance/attendee/:id", h.GetAttendeeAttendance)

	// ライブカウント（websocket）。ポーリングの補助であって代替ではない
	r.GET("/attendance/session/:code/live", liveCountHandler(svc, allowedOrigins))
}

// POST /attendance
func (h *Handler) RecordAttendance(c *gin.Context) {
	var req RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.RecordAttendance(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Location", "/attendance/session/"+res.SessionCode)
	c.JSON(http.StatusCreated, gin.H{"attendance": res})
}

// GET /attendance/session/:code
func (h *Handler) GetSessionAttendance(c *gin.Context) {
	res, err := h.svc.ListBySession(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RecordListResponse{Attendance: res})
}

// GET /attendance/attendee/:id
func (h *Handler) GetAttendeeAttendance(c *gin.Context) {
	res, err := h.svc.ListByAttendee(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RecordListResponse{Attendance: res})
}

func respondError(c *gin.Context, err error) {
	status := apperr.ToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] attendance: %v", err)
	}
	c.JSON(status, apperr.FromErr(err))
}
