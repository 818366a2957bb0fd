package attendance

import (
	"context"
	"database/sql"
	"errors"

	platformdb "tapandtrack-backend/internal/platform/db"
)

// (attendee_id, session_code) のUNIQUEキー違反。
// 二重タップやリトライによる二重登録はDBがここで裁く
var ErrDuplicate = errors.New("attendance already recorded")

type RecordStore interface {
	GetSessionState(ctx context.Context, code string) (*sessionState, error)
	Insert(ctx context.Context, r Record) error
	ListBySession(ctx context.Context, code string) ([]Record, error)
	ListByAttendee(ctx context.Context, attendeeID string) ([]Record, error)
	CountBySession(ctx context.Context, code string) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// GetSessionState: 存在しないときは (nil, nil)
func (s *Store) GetSessionState(ctx context.Context, code string) (*sessionState, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT session_code, is_active, expires_at
	FROM sessions
	WHERE session_code = ?
	LIMIT 1`, code)

	var r sessionStateRow
	if err := row.Scan(&r.SessionCode, &r.IsActive, &r.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m := r.toModel()
	return &m, nil
}

// Insert: 既存チェックなしの素のINSERT。重複はUNIQUEキーに裁かせる
func (s *Store) Insert(ctx context.Context, rec Record) error {
	const q = `
	INSERT INTO attendance (attendance_id, attendee_id, session_code, time_in)
	VALUES (?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q, rec.AttendanceID, rec.AttendeeID, rec.SessionCode, rec.TimeIn.UTC())
	if err != nil {
		if platformdb.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListBySession: time_in 昇順。並行登録ではtime_inが到着順と一致しないので
// 必ずここで明示的にソートする
func (s *Store) ListBySession(ctx context.Context, code string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT attendance_id, attendee_id, session_code, time_in
	FROM attendance
	WHERE session_code = ?
	ORDER BY time_in ASC, attendance_id ASC`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListByAttendee: time_in 降順（新しいものから）
func (s *Store) ListByAttendee(ctx context.Context, attendeeID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT attendance_id, attendee_id, session_code, time_in
	FROM attendance
	WHERE attendee_id = ?
	ORDER BY time_in DESC, attendance_id DESC`, attendeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) CountBySession(ctx context.Context, code string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM attendance WHERE session_code = ?`, code).Scan(&n)
	return n, err
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var r recordRow
		if err := rows.Scan(&r.AttendanceID, &r.AttendeeID, &r.SessionCode, &r.TimeIn); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

var _ RecordStore = (*Store)(nil)
