package attendance

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"tapandtrack-backend/internal/platform/apperr"
)

type Service struct {
	store RecordStore

	clock func() time.Time
	newID func() (string, error)
}

func NewService(db *sql.DB) *Service {
	return &Service{
		store: NewStore(db),
		clock: func() time.Time { return time.Now().UTC() },
		newID: newULID,
	}
}

func newULID() (string, error) {
	t := time.Now().UTC()
	id, err := ulid.New(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// RecordAttendance: 1学生1セッション1回。
// 重複の裁定はINSERT時のUNIQUEキーに任せる（事前チェックとの間に
// レースが入るのでSELECTで確かめてからINSERTしてはいけない）。
// 失敗時の自動リトライも禁止：あいまいなネットワーク障害後に再送すると
// 二重登録になりうる
func (s *Service) RecordAttendance(ctx context.Context, in RecordAttendanceRequest) (RecordResponse, error) {
	if strings.TrimSpace(in.SessionCode) == "" {
		return RecordResponse{}, apperr.Invalid("sessionCode is required")
	}
	if strings.TrimSpace(in.AttendeeID) == "" {
		return RecordResponse{}, apperr.Invalid("attendeeId is required")
	}

	sess, err := s.store.GetSessionState(ctx, in.SessionCode)
	if err != nil {
		return RecordResponse{}, err
	}
	if sess == nil {
		return RecordResponse{}, apperr.NotFound("session not found")
	}

	now := s.clock()
	// 掃除タスクを待たずに期限も見る。期限超過後は高々1リクエストで
	// 非アクティブとして観測される
	if !sess.IsActive || sess.expired(now) {
		return RecordResponse{}, apperr.Inactive("this session is no longer active")
	}

	id, err := s.newID()
	if err != nil {
		return RecordResponse{}, err
	}

	rec := Record{
		AttendanceID: id,
		AttendeeID:   in.AttendeeID,
		SessionCode:  in.SessionCode,
		TimeIn:       now, // サーバ採番。クライアントの時刻は信用しない
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return RecordResponse{}, apperr.Duplicate("attendance already recorded for this session")
		}
		return RecordResponse{}, err
	}
	return rec.toDTO(), nil
}

func (s *Service) ListBySession(ctx context.Context, code string) ([]RecordResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperr.Invalid("sessionCode is required")
	}
	rows, err := s.store.ListBySession(ctx, code)
	if err != nil {
		return nil, err
	}
	return toDTOs(rows), nil
}

func (s *Service) ListByAttendee(ctx context.Context, attendeeID string) ([]RecordResponse, error) {
	if strings.TrimSpace(attendeeID) == "" {
		return nil, apperr.Invalid("attendeeId is required")
	}
	rows, err := s.store.ListByAttendee(ctx, attendeeID)
	if err != nil {
		return nil, err
	}
	return toDTOs(rows), nil
}

func (s *Service) CountBySession(ctx context.Context, code string) (int64, error) {
	return s.store.CountBySession(ctx, code)
}

func toDTOs(rows []Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(rows))
	for i := 0; i < len(rows); i++ {
		out = append(out, rows[i].toDTO())
	}
	return out
}
