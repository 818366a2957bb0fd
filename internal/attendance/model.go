package attendance

import (
	"database/sql"
	"time"
)

// DB行に対応（スキャン用）
type recordRow struct {
	AttendanceID string
	AttendeeID   string
	SessionCode  string
	TimeIn       time.Time
}

// Service ↔ Store で使うモデル
type Record struct {
	AttendanceID string
	AttendeeID   string
	SessionCode  string
	TimeIn       time.Time
}

func (r recordRow) toModel() Record {
	return Record{
		AttendanceID: r.AttendanceID,
		AttendeeID:   r.AttendeeID,
		SessionCode:  r.SessionCode,
		TimeIn:       r.TimeIn.UTC(),
	}
}

func (r Record) toDTO() RecordResponse {
	return RecordResponse{
		AttendanceID: r.AttendanceID,
		AttendeeID:   r.AttendeeID,
		SessionCode:  r.SessionCode,
		TimeIn:       r.TimeIn,
	}
}

// 出席可否の判定に必要な最小限のセッション状態。
// sessionsテーブルはこのパッケージでは読むだけで一切書かない
type sessionState struct {
	SessionCode string
	IsActive    bool
	ExpiresAt   *time.Time
}

type sessionStateRow struct {
	SessionCode string
	IsActive    int
	ExpiresAt   sql.NullTime
}

func (r sessionStateRow) toModel() sessionState {
	s := sessionState{SessionCode: r.SessionCode, IsActive: r.IsActive != 0}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time.UTC()
		s.ExpiresAt = &t
	}
	return s
}

// expired: 掃除タスクがまだ走っていなくても、期限を過ぎていれば非アクティブ扱い
func (s sessionState) expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
