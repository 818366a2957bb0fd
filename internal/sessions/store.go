package sessions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	platformdb "tapandtrack-backend/internal/platform/db"
)

// セッションコードの一意性はDBのUNIQUEキーが裁定する。
// 衝突はこのsentinelで返し、Service側が再生成する
var ErrCodeTaken = errors.New("session code already exists")

type SessionStore interface {
	Insert(ctx context.Context, s Session) error
	GetByCode(ctx context.Context, code string) (*Session, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Session, error)
	ListActive(ctx context.Context) ([]Session, error)
	Deactivate(ctx context.Context, code string) (int64, error)
	ListDueCodes(ctx context.Context, now time.Time) ([]string, error)
	DeleteCascade(ctx context.Context, code string) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const sessionColumns = `session_id, owner_id, subject, session_code, created_at, is_active, expires_at`

func (s *Store) Insert(ctx context.Context, sess Session) error {
	const q = `
	INSERT INTO sessions (session_id, owner_id, subject, session_code, created_at, is_active, expires_at)
	VALUES (?, ?, ?, ?, ?, 1, ?)`

	expires := any(nil)
	if sess.ExpiresAt != nil {
		expires = sess.ExpiresAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, q,
		sess.SessionID, sess.OwnerID, sess.Subject, sess.SessionCode, sess.CreatedAt.UTC(), expires)
	if err != nil {
		if platformdb.IsDuplicateKey(err) {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

// GetByCode: 存在しないときは (nil, nil)
func (s *Store) GetByCode(ctx context.Context, code string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT `+sessionColumns+`
	FROM sessions
	WHERE session_code = ?
	LIMIT 1`, code)

	var r sessionRow
	if err := row.Scan(&r.SessionID, &r.OwnerID, &r.Subject, &r.SessionCode, &r.CreatedAt, &r.IsActive, &r.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m := r.toModel()
	return &m, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+sessionColumns+`
	FROM sessions
	WHERE owner_id = ?
	ORDER BY created_at DESC, session_id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (s *Store) ListActive(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+sessionColumns+`
	FROM sessions
	WHERE is_active = 1
	ORDER BY created_at DESC, session_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// Deactivate: EndSessionと掃除タスクの両方がここを通る（遷移の単一入口）。
// 既に非アクティブなら affected=0 で冪等
func (s *Store) Deactivate(ctx context.Context, code string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	UPDATE sessions SET is_active = 0
	WHERE session_code = ? AND is_active = 1`, code)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListDueCodes: 期限切れなのにまだアクティブなセッション
func (s *Store) ListDueCodes(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT session_code FROM sessions
	WHERE is_active = 1 AND expires_at IS NOT NULL AND expires_at <= ?`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, rows.Err()
}

// DeleteCascade: 管理者用の物理削除。出席記録ごと1トランザクションで消す
func (s *Store) DeleteCascade(ctx context.Context, code string) (int64, error) {
	var affected int64
	err := platformdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx platformdb.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE session_code = ?`, code); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_code = ?`, code)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func scanSessions(rows *sql.Rows) ([]Session, error) {
	var out []Session
	for rows.Next() {
		var r sessionRow
		if err := rows.Scan(&r.SessionID, &r.OwnerID, &r.Subject, &r.SessionCode, &r.CreatedAt, &r.IsActive, &r.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

var _ SessionStore = (*Store)(nil)
