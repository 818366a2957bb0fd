package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	byEmail map[string]*User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*User)}
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Create(ctx context.Context, u *User) error {
	if _, taken := f.byEmail[u.Email]; taken {
		// DBのUNIQUE違反を模す
		return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	}
	cp := *u
	f.byEmail[u.Email] = &cp
	return nil
}

func newTestAuthService(store UserStore) *Service {
	seq := 0
	return &Service{
		store:    store,
		secret:   []byte("test-secret"),
		tokenTTL: time.Hour,
		clock:    func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) },
		newID: func() (string, error) {
			seq++
			return "user-0001", nil
		},
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	p, err := svc.Register(context.Background(), "teacher@example.com", "s3cret", RoleTeacher)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.Role != RoleTeacher {
		t.Fatalf("expected teacher role, got %s", p.Role)
	}

	u := store.byEmail["teacher@example.com"]
	if u == nil {
		t.Fatal("expected user persisted")
	}
	if u.PasswordHash == "s3cret" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	if _, err := svc.Register(context.Background(), "x@example.com", "pw", RoleStudent); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "x@example.com", "pw2", RoleStudent); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRegisterUnknownRoleFallsBackToStudent(t *testing.T) {
	svc := newTestAuthService(newFakeUserStore())
	p, err := svc.Register(context.Background(), "y@example.com", "pw", "superuser")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.Role != RoleStudent {
		t.Fatalf("expected student fallback, got %s", p.Role)
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	if _, err := svc.Register(context.Background(), "t@example.com", "pw", RoleTeacher); err != nil {
		t.Fatalf("register: %v", err)
	}

	tokenStr, principal, err := svc.Login(context.Background(), "t@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if principal.Email != "t@example.com" {
		t.Fatalf("unexpected principal %+v", principal)
	}

	token, err := jwt.Parse(tokenStr, func(tk *jwt.Token) (any, error) { return []byte("test-secret"), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(svc.clock))
	if err != nil || !token.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["role"] != RoleTeacher {
		t.Fatalf("expected teacher role claim, got %v", claims["role"])
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)
	if _, err := svc.Register(context.Background(), "t@example.com", "pw", RoleTeacher); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "t@example.com", "wrong"); err != ErrAuthFailed {
		t.Fatalf("expected ErrAuthFailed for bad password, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "pw"); err != ErrAuthFailed {
		t.Fatalf("expected ErrAuthFailed for unknown user, got %v", err)
	}

	disabled := *store.byEmail["t@example.com"]
	disabled.IsDisabled = true
	store.byEmail["t@example.com"] = &disabled
	if _, _, err := svc.Login(context.Background(), "t@example.com", "pw"); err != ErrAuthFailed {
		t.Fatalf("expected ErrAuthFailed for disabled account, got %v", err)
	}
}
