package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS は公開フォームエンドポイント用のCORSミドルウェアを返す。
// 投稿フォームはマーケティングサイトの任意のページに埋め込まれるため、
// オリジンを限定せずワイルドカードで許可する。
// OPTIONSプリフライトには200を返してリクエストを中断する。
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
