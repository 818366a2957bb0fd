package sessions

import (
	"database/sql"
	"time"
)

// DB行に対応（スキャン用）
type sessionRow struct {
	SessionID   string
	OwnerID     string
	Subject     string
	SessionCode string
	CreatedAt   time.Time
	IsActive    int
	ExpiresAt   sql.NullTime
}

// Service ↔ Store で使うモデル
type Session struct {
	SessionID   string
	OwnerID     string
	Subject     string
	SessionCode string
	CreatedAt   time.Time
	IsActive    bool
	ExpiresAt   *time.Time
}

func (r sessionRow) toModel() Session {
	s := Session{
		SessionID:   r.SessionID,
		OwnerID:     r.OwnerID,
		Subject:     r.Subject,
		SessionCode: r.SessionCode,
		CreatedAt:   r.CreatedAt.UTC(),
		IsActive:    r.IsActive != 0,
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time.UTC()
		s.ExpiresAt = &t
	}
	return s
}

func (s Session) toDTO() SessionResponse {
	return SessionResponse{
		SessionID:   s.SessionID,
		OwnerID:     s.OwnerID,
		Subject:     s.Subject,
		SessionCode: s.SessionCode,
		CreatedAt:   s.CreatedAt,
		IsActive:    s.IsActive,
		ExpiresAt:   s.ExpiresAt,
	}
}
