package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	platformdb "tapandtrack-backend/internal/platform/db"
)

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrAuthFailed    = errors.New("authentication failed")
)

// 認証済みユーザの公開情報（パスワードハッシュは出さない）
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type Service struct {
	store    UserStore
	secret   []byte
	tokenTTL time.Duration
	clock    func() time.Time
	newID    func() (string, error)
}

func NewService(db *sql.DB, secret []byte, tokenTTL time.Duration) *Service {
	return &Service{
		store:    NewStore(db),
		secret:   secret,
		tokenTTL: tokenTTL,
		clock:    func() time.Time { return time.Now().UTC() },
		newID:    newULID,
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

func (s *Service) Secret() []byte { return s.secret }

func (s *Service) Login(ctx context.Context, email, password string) (string, *Principal, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	// 存在しない/無効/パスワード不一致はすべて同じ失敗にする（列挙攻撃対策）
	if u == nil || u.IsDisabled {
		return "", nil, ErrAuthFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthFailed
	}

	now := s.clock()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  u.UserID,
		"role": u.Role,
		"exp":  now.Add(s.tokenTTL).Unix(),
	})
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return tokenString, &Principal{UserID: u.UserID, Email: u.Email, Role: u.Role}, nil
}

func (s *Service) Register(ctx context.Context, email, password, role string) (*Principal, error) {
	if role != RoleTeacher && role != RoleStudent {
		role = RoleStudent
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id, err := s.newID()
	if err != nil {
		return nil, err
	}

	u := &User{
		UserID:       id,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.clock(),
	}
	// email の一意性はDBのUNIQUEで担保。事前のGetByEmailはしない
	if err := s.store.Create(ctx, u); err != nil {
		if platformdb.IsDuplicateKey(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return &Principal{UserID: u.UserID, Email: u.Email, Role: u.Role}, nil
}
