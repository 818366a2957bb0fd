package sessions

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"tapandtrack-backend/internal/platform/apperr"
)

type fakeSessionStore struct {
	mu     sync.Mutex
	byCode map[string]Session

	insertErr  error
	listDueErr error
	deactERR   map[string]error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{byCode: make(map[string]Session)}
}

func (f *fakeSessionStore) Insert(ctx context.Context, s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	// UNIQUEキー相当の裁定
	if _, taken := f.byCode[s.SessionCode]; taken {
		return ErrCodeTaken
	}
	f.byCode[s.SessionCode] = s
	return nil
}

func (f *fakeSessionStore) GetByCode(ctx context.Context, code string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byCode[code]
	if !ok {
		return nil, nil
	}
	cp := s
	return &cp, nil
}

func (f *fakeSessionStore) ListByOwner(ctx context.Context, ownerID string) ([]Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Session
	for _, s := range f.byCode {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSessionStore) ListActive(ctx context.Context) ([]Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Session
	for _, s := range f.byCode {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) Deactivate(ctx context.Context, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deactERR[code]; err != nil {
		return 0, err
	}
	s, ok := f.byCode[code]
	if !ok || !s.IsActive {
		return 0, nil
	}
	s.IsActive = false
	f.byCode[code] = s
	return 1, nil
}

func (f *fakeSessionStore) ListDueCodes(ctx context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listDueErr != nil {
		return nil, f.listDueErr
	}
	var out []string
	for code, s := range f.byCode {
		if s.IsActive && s.ExpiresAt != nil && !now.Before(*s.ExpiresAt) {
			out = append(out, code)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) DeleteCascade(ctx context.Context, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byCode[code]; !ok {
		return 0, nil
	}
	delete(f.byCode, code)
	return 1, nil
}

func newTestService(store SessionStore, now time.Time) *Service {
	seq := 0
	return &Service{
		store: store,
		clock: func() time.Time { return now },
		newID: func() (string, error) {
			seq++
			return fmt.Sprintf("sess-%04d", seq), nil
		},
		newCode: func() (string, error) { return newSessionCode(CodeLength) },
	}
}

func appErrCode(t *testing.T, err error) apperr.Code {
	t.Helper()
	var e *apperr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	return e.Code
}

func TestCreateSessionSuccess(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()
	svc := newTestService(store, now)

	duration := 60
	res, err := svc.CreateSession(context.Background(), CreateSessionRequest{
		OwnerID:         "owner-1",
		Subject:         "  Databases 101 ",
		DurationMinutes: &duration,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if !res.IsActive {
		t.Fatal("expected new session to be active")
	}
	if res.Subject != "Databases 101" {
		t.Fatalf("expected trimmed subject, got %q", res.Subject)
	}
	if res.CreatedAt != now {
		t.Fatalf("expected createdAt %v, got %v", now, res.CreatedAt)
	}
	if res.ExpiresAt == nil || !res.ExpiresAt.Equal(now.Add(60*time.Minute)) {
		t.Fatalf("expected expiresAt one hour out, got %v", res.ExpiresAt)
	}
	if len(res.SessionCode) != CodeLength {
		t.Fatalf("expected %d char code, got %q", CodeLength, res.SessionCode)
	}
	stored, _ := store.GetByCode(context.Background(), res.SessionCode)
	if stored == nil {
		t.Fatal("expected session persisted under its code")
	}
}

func TestCreateSessionWithoutDurationHasNoExpiry(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc := newTestService(newFakeSessionStore(), now)

	res, err := svc.CreateSession(context.Background(), CreateSessionRequest{OwnerID: "owner-1", Subject: "Algebra"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if res.ExpiresAt != nil {
		t.Fatalf("expected no expiry, got %v", res.ExpiresAt)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	svc := newTestService(newFakeSessionStore(), time.Now().UTC())

	cases := []CreateSessionRequest{
		{OwnerID: "", Subject: "Math"},
		{OwnerID: "owner-1", Subject: "   "},
	}
	for _, in := range cases {
		_, err := svc.CreateSession(context.Background(), in)
		if err == nil {
			t.Fatalf("expected validation error for %+v", in)
		}
		if code := appErrCode(t, err); code != apperr.CodeInvalidArgument {
			t.Fatalf("expected INVALID_ARGUMENT, got %s", code)
		}
	}
}

func TestCreateSessionRetriesOnCodeCollision(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeSessionStore()
	store.byCode["TAKEN234"] = Session{SessionID: "sess-0", SessionCode: "TAKEN234", IsActive: true}

	svc := newTestService(store, now)
	codes := []string{"TAKEN234", "TAKEN234", "FRESH234"}
	calls := 0
	svc.newCode = func() (string, error) {
		c := codes[calls]
		calls++
		return c, nil
	}

	res, err := svc.CreateSession(context.Background(), CreateSessionRequest{OwnerID: "owner-1", Subject: "Math"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if res.SessionCode != "FRESH234" {
		t.Fatalf("expected regenerated code, got %q", res.SessionCode)
	}
	if calls != 3 {
		t.Fatalf("expected 3 generation attempts, got %d", calls)
	}
}

func TestCreateSessionRetryExhaustion(t *testing.T) {
	store := newFakeSessionStore()
	store.byCode["STUCK234"] = Session{SessionCode: "STUCK234"}

	svc := newTestService(store, time.Now().UTC())
	calls := 0
	svc.newCode = func() (string, error) {
		calls++
		return "STUCK234", nil
	}

	_, err := svc.CreateSession(context.Background(), CreateSessionRequest{OwnerID: "owner-1", Subject: "Math"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if code := appErrCode(t, err); code != apperr.CodeInternal {
		t.Fatalf("expected INTERNAL, got %s", code)
	}
	if calls != createRetryLimit {
		t.Fatalf("expected %d attempts, got %d", createRetryLimit, calls)
	}
}

// 狭めたコード空間で並行生成しても、重複コードのセッションが
// 2つできないこと（衝突は再生成で解消される）
func TestCreateSessionConcurrentCodesStayUnique(t *testing.T) {
	store := newFakeSessionStore()
	now := time.Now().UTC()

	const workers = 24
	var wg sync.WaitGroup
	results := make(chan string, workers)

	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(i)))
			svc := newTestService(store, now)
			svc.newID = func() (string, error) { return fmt.Sprintf("sess-%d-%d", i, rng.Int()), nil }
			// 64通りしかない空間で意図的に衝突させる
			svc.newCode = func() (string, error) {
				return fmt.Sprintf("%c%c", 'A'+rng.Intn(8), 'A'+rng.Intn(8)), nil
			}
			res, err := svc.CreateSession(context.Background(), CreateSessionRequest{OwnerID: "owner-1", Subject: "Math"})
			if err != nil {
				// リトライ上限まで空きを引けなかった場合のみ許容
				var e *apperr.Error
				if !errors.As(err, &e) || e.Code != apperr.CodeInternal {
					t.Errorf("unexpected error kind: %v", err)
				}
				return
			}
			results <- res.SessionCode
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for code := range results {
		if seen[code] {
			t.Fatalf("duplicate session code issued: %q", code)
		}
		seen[code] = true
	}
	if len(seen) == 0 {
		t.Fatal("expected at least one successful creation")
	}
	if len(store.byCode) != len(seen) {
		t.Fatalf("store holds %d sessions, callers saw %d", len(store.byCode), len(seen))
	}
}

func TestEndSessionIdempotent(t *testing.T) {
	store := newFakeSessionStore()
	store.byCode["ABCD2345"] = Session{SessionCode: "ABCD2345", IsActive: true}
	svc := newTestService(store, time.Now().UTC())

	if err := svc.EndSession(context.Background(), "ABCD2345"); err != nil {
		t.Fatalf("end session: %v", err)
	}
	if store.byCode["ABCD2345"].IsActive {
		t.Fatal("expected session deactivated")
	}
	// 2回目は何もしないで成功
	if err := svc.EndSession(context.Background(), "ABCD2345"); err != nil {
		t.Fatalf("second end should be a no-op: %v", err)
	}
}

func TestEndSessionUnknownCode(t *testing.T) {
	svc := newTestService(newFakeSessionStore(), time.Now().UTC())

	err := svc.EndSession(context.Background(), "NOPE2345")
	if err == nil {
		t.Fatal("expected error for unknown code")
	}
	if code := appErrCode(t, err); code != apperr.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", code)
	}
}

func TestListForOwnerRequiresOwner(t *testing.T) {
	svc := newTestService(newFakeSessionStore(), time.Now().UTC())
	if _, err := svc.ListForOwner(context.Background(), " "); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDeleteSession(t *testing.T) {
	store := newFakeSessionStore()
	store.byCode["ABCD2345"] = Session{SessionCode: "ABCD2345"}
	svc := newTestService(store, time.Now().UTC())

	if err := svc.Delete(context.Background(), "ABCD2345"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "ABCD2345"); err == nil {
		t.Fatal("expected NOT_FOUND for second delete")
	}
}
