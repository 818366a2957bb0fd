package sessions

import "time"

const (
	// 紛らわしい I/L/O/0/1 を除いた31文字。スキャン失敗時の手入力を想定
	CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	CodeLength   = 8

	// コード衝突時の再生成回数。ここまで尽きるのは生成器の故障とみなす
	createRetryLimit = 5
)

type CreateSessionRequest struct {
	OwnerID         string `json:"ownerId" binding:"required"`
	Subject         string `json:"subject" binding:"required"`
	DurationMinutes *int   `json:"durationMinutes,omitempty"`
}

type SessionResponse struct {
	SessionID   string     `json:"sessionId"`
	OwnerID     string     `json:"ownerId"`
	Subject     string     `json:"subject"`
	SessionCode string     `json:"sessionCode"`
	CreatedAt   time.Time  `json:"createdAt"`
	IsActive    bool       `json:"isActive"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

type CreateSessionResponse struct {
	Session SessionResponse `json:"session"`
	QRCode  string          `json:"qrCode"`
}

type QRCodeResponse struct {
	QRCode      string `json:"qrCode"`
	SessionCode string `json:"sessionCode"`
}

type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}
