package attendance

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ライブカウントの更新間隔。staleness の上限はこの値
const livePollInterval = 2 * time.Second

// liveCountHandler: 発表者が出席数の伸びを眺めるためのwebsocket。
// プロセス内に状態は持たず、毎tickDBを数え直して押し出すだけ。
// ワーカーが何台いても同じ答えになる
func liveCountHandler(svc *Service, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if origin == o {
					return true
				}
			}
			return false
		},
	}

	return func(c *gin.Context) {
		code := c.Param("code")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WARN] websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		ctx := c.Request.Context()
		ticker := time.NewTicker(livePollInterval)
		defer ticker.Stop()

		// 接続直後に一度送る（初期表示を待たせない）
		if err := pushCount(ctx, conn, svc, code); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := pushCount(ctx, conn, svc, code); err != nil {
					// 切断 or 書き込み失敗。クライアント側の再接続に任せる
					return
				}
			}
		}
	}
}

func pushCount(ctx context.Context, conn *websocket.Conn, svc *Service, code string) error {
	n, err := svc.CountBySession(ctx, code)
	if err != nil {
		log.Printf("[WARN] live count query failed: %v", err)
		return err
	}
	return conn.WriteJSON(LiveCountFrame{
		SessionCode: code,
		Count:       n,
		UpdatedAt:   time.Now().UTC(),
	})
}
