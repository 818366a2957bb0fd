package analytics

import (
	"context"
	"database/sql"
	"errors"

	platformdb "tapandtrack-backend/internal/platform/db"
)

// 読み取り専用。sessions / attendance を書き換えるSQLはこのパッケージに置かない
type ReadStore interface {
	GetSession(ctx context.Context, code string) (*SessionInfo, error)
	SessionAttendance(ctx context.Context, code string) ([]AttendanceEntry, error)
	OwnerSessionCounts(ctx context.Context, ownerID string) (total, active int64, err error)
	OwnerAttendanceTotal(ctx context.Context, ownerID string) (int64, error)
	AttendeeRecords(ctx context.Context, attendeeID string) ([]AttendanceEntry, error)
	ExportSnapshot(ctx context.Context, code string) (*SessionInfo, []AttendanceEntry, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) GetSession(ctx context.Context, code string) (*SessionInfo, error) {
	return getSession(ctx, s.db, code)
}

func (s *Store) SessionAttendance(ctx context.Context, code string) ([]AttendanceEntry, error) {
	return sessionAttendance(ctx, s.db, code)
}

// OwnerSessionCounts: 1クエリで総数とアクティブ数をまとめて取る
func (s *Store) OwnerSessionCounts(ctx context.Context, ownerID string) (int64, int64, error) {
	var total, active int64
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*), COALESCE(SUM(is_active), 0)
	FROM sessions
	WHERE owner_id = ?`, ownerID).Scan(&total, &active)
	if err != nil {
		return 0, 0, err
	}
	return total, active, nil
}

// OwnerAttendanceTotal: JOINで一発。セッションごとにCOUNTを回すN+1はやらない
func (s *Store) OwnerAttendanceTotal(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*)
	FROM attendance a
	INNER JOIN sessions s ON a.session_code = s.session_code
	WHERE s.owner_id = ?`, ownerID).Scan(&n)
	return n, err
}

func (s *Store) AttendeeRecords(ctx context.Context, attendeeID string) ([]AttendanceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT attendance_id, attendee_id, session_code, time_in
	FROM attendance
	WHERE attendee_id = ?
	ORDER BY time_in DESC, attendance_id DESC`, attendeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ExportSnapshot: セッションと出席一覧を読み取り専用Txで揃えて取る
func (s *Store) ExportSnapshot(ctx context.Context, code string) (*SessionInfo, []AttendanceEntry, error) {
	var (
		sess    *SessionInfo
		entries []AttendanceEntry
	)
	err := platformdb.ReadOnly(ctx, s.db, func(ctx context.Context, tx platformdb.DBTX) error {
		var err error
		sess, err = getSession(ctx, tx, code)
		if err != nil {
			return err
		}
		if sess == nil {
			return nil
		}
		entries, err = sessionAttendance(ctx, tx, code)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return sess, entries, nil
}

func getSession(ctx context.Context, q platformdb.DBTX, code string) (*SessionInfo, error) {
	row := q.QueryRowContext(ctx, `
	SELECT session_id, owner_id, subject, session_code, created_at, is_active, expires_at
	FROM sessions
	WHERE session_code = ?
	LIMIT 1`, code)

	var (
		out         SessionInfo
		isActiveInt int
		expiresAt   sql.NullTime
	)
	if err := row.Scan(&out.SessionID, &out.OwnerID, &out.Subject, &out.SessionCode,
		&out.CreatedAt, &isActiveInt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	out.CreatedAt = out.CreatedAt.UTC()
	out.IsActive = isActiveInt != 0
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		out.ExpiresAt = &t
	}
	return &out, nil
}

func sessionAttendance(ctx context.Context, q platformdb.DBTX, code string) ([]AttendanceEntry, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT attendance_id, attendee_id, session_code, time_in
	FROM attendance
	WHERE session_code = ?
	ORDER BY time_in ASC, attendance_id ASC`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]AttendanceEntry, error) {
	var out []AttendanceEntry
	for rows.Next() {
		var e AttendanceEntry
		if err := rows.Scan(&e.AttendanceID, &e.AttendeeID, &e.SessionCode, &e.TimeIn); err != nil {
			return nil, err
		}
		e.TimeIn = e.TimeIn.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ ReadStore = (*Store)(nil)
