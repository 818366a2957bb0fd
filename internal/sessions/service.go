package sessions

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"tapandtrack-backend/internal/platform/apperr"
)

type Service struct {
	store SessionStore

	// テストで差し替えるために関数で持つ
	clock   func() time.Time
	newID   func() (string, error)
	newCode func() (string, error)
}

func NewService(db *sql.DB) *Service {
	return &Service{
		store:   NewStore(db),
		clock:   func() time.Time { return time.Now().UTC() },
		newID:   newULID,
		newCode: func() (string, error) { return newSessionCode(CodeLength) },
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

// CreateSession: コード衝突時はDBのUNIQUE違反を合図に再生成する。
// 事前の存在チェックはしない（check-then-act禁止）
func (s *Service) CreateSession(ctx context.Context, in CreateSessionRequest) (SessionResponse, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return SessionResponse{}, apperr.Invalid("ownerId is required")
	}
	if strings.TrimSpace(in.Subject) == "" {
		return SessionResponse{}, apperr.Invalid("subject is required")
	}
	if in.DurationMinutes != nil && *in.DurationMinutes < 0 {
		return SessionResponse{}, apperr.Invalid("durationMinutes must be >= 0")
	}

	id, err := s.newID()
	if err != nil {
		return SessionResponse{}, err
	}

	now := s.clock()
	sess := Session{
		SessionID: id,
		OwnerID:   in.OwnerID,
		Subject:   strings.TrimSpace(in.Subject),
		CreatedAt: now,
		IsActive:  true,
	}
	if in.DurationMinutes != nil && *in.DurationMinutes > 0 {
		t := now.Add(time.Duration(*in.DurationMinutes) * time.Minute)
		sess.ExpiresAt = &t
	}

	for attempt := 0; attempt < createRetryLimit; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return SessionResponse{}, err
		}
		sess.SessionCode = code

		err = s.store.Insert(ctx, sess)
		if err == nil {
			return sess.toDTO(), nil
		}
		if errors.Is(err, ErrCodeTaken) {
			log.Printf("[WARN] session code collision (attempt %d)", attempt+1)
			continue
		}
		return SessionResponse{}, err
	}
	// ここに来るのは生成器の偏り等の異常時のみ
	return SessionResponse{}, apperr.Internal("could not allocate a unique session code")
}

// EndSession: 冪等。既に終了済みなら何もせず成功
func (s *Service) EndSession(ctx context.Context, code string) error {
	n, err := s.store.Deactivate(ctx, code)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	sess, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if sess == nil {
		return apperr.NotFound("session not found")
	}
	return nil
}

func (s *Service) ListForOwner(ctx context.Context, ownerID string) ([]SessionResponse, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperr.Invalid("ownerId is required")
	}
	rows, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return toDTOs(rows), nil
}

func (s *Service) ListActive(ctx context.Context) ([]SessionResponse, error) {
	rows, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return toDTOs(rows), nil
}

// Delete: 管理者操作。セッションと出席記録を同一Txで消す
func (s *Service) Delete(ctx context.Context, code string) error {
	n, err := s.store.DeleteCascade(ctx, code)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("session not found")
	}
	return nil
}

func toDTOs(rows []Session) []SessionResponse {
	out := make([]SessionResponse, 0, len(rows))
	for i := 0; i < len(rows); i++ {
		out = append(out, rows[i].toDTO())
	}
	return out
}
