package sessions

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tapandtrack-backend/internal/platform/apperr"
	"tapandtrack-backend/internal/platform/auth"
	"tapandtrack-backend/internal/platform/qr"
)

type Handler struct {
	svc   *Service
	codec qr.Codec
}

func RegisterRoutes(r gin.IRoutes, svc *Service, codec qr.Codec, jwtSecret []byte) {
	h := &Handler{svc: svc, codec: codec}

	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/active", h.ListActiveSessions)
	r.POST("/sessions/:code/end", h.EndSession)

	// QR画像（コーデックのみ。セッションの実在確認はしない）
	r.GET("/sessions/:code/qr", h.GetQRCode)
	r.POST("/sessions/:code/qr/refresh", h.RefreshQRCode)

	// 物理削除は教師ロール限定
	r.DELETE("/sessions/:code", auth.RequireAuth(jwtSecret), auth.RequireRole(auth.RoleTeacher), h.DeleteSession)
}

// POST /sessions
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.CreateSession(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	png, err := h.codec.Encode(res.SessionCode, qr.DefaultSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Location", "/sessions/"+res.SessionCode)
	c.JSON(http.StatusCreated, CreateSessionResponse{
		Session: res,
		QRCode:  qr.DataURL(png),
	})
}

// GET /sessions?ownerId=
func (h *Handler) ListSessions(c *gin.Context) {
	res, err := h.svc.ListForOwner(c.Request.Context(), c.Query("ownerId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionListResponse{Sessions: res})
}

// GET /sessions/active
func (h *Handler) ListActiveSessions(c *gin.Context) {
	res, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionListResponse{Sessions: res})
}

// POST /sessions/:code/end
func (h *Handler) EndSession(c *gin.Context) {
	if err := h.svc.EndSession(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session ended"})
}

// GET /sessions/:code/qr
func (h *Handler) GetQRCode(c *gin.Context) {
	h.writeQR(c, c.Param("code"))
}

// POST /sessions/:code/qr/refresh
func (h *Handler) RefreshQRCode(c *gin.Context) {
	h.writeQR(c, c.Param("code"))
}

func (h *Handler) writeQR(c *gin.Context, code string) {
	if code == "" {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "session code is required"))
		return
	}
	png, err := h.codec.Encode(code, qr.DefaultSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, QRCodeResponse{QRCode: qr.DataURL(png), SessionCode: code})
}

// DELETE /sessions/:code
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}

// respondError: 型付きエラーはそのままマッピング、
// それ以外（ストレージ障害など）はログだけ残して詳細を伏せる
func respondError(c *gin.Context, err error) {
	status := apperr.ToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] sessions: %v", err)
	}
	c.JSON(status, apperr.FromErr(err))
}
