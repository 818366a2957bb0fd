package sessions

import (
	"context"
	"log"
	"time"
)

// Sweeper: 期限切れセッションを is_active=0 に落とす常駐タスク。
// 遷移はEndSessionと同じ Store.Deactivate を使うので、手動終了と自動失効は
// 読み手からは区別がつかない。
type Sweeper struct {
	store    SessionStore
	interval time.Duration
	clock    func() time.Time
}

func NewSweeper(store SessionStore, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Run: ctx がキャンセルされるまで回り続ける。tickの失敗は致命傷にしない
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("[INFO] expiry sweeper started (interval=%s)", w.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] expiry sweeper stopped")
			return
		case <-ticker.C:
			if err := w.sweepOnce(ctx); err != nil {
				// 一時的なDB障害など。次のtickでやり直す
				log.Printf("[WARN] sweep failed: %v", err)
			}
		}
	}
}

func (w *Sweeper) sweepOnce(ctx context.Context) error {
	codes, err := w.store.ListDueCodes(ctx, w.clock())
	if err != nil {
		return err
	}
	swept := 0
	for _, code := range codes {
		n, err := w.store.Deactivate(ctx, code)
		if err != nil {
			// 個別の失敗は記録して続行
			log.Printf("[WARN] sweep deactivate %s: %v", code, err)
			continue
		}
		if n > 0 {
			swept++
		}
	}
	if swept > 0 {
		log.Printf("[INFO] sweep: %d session(s) expired", swept)
	}
	return nil
}
