// 投稿ゲートウェイサービスのエントリポイント。
// マーケティングサイトの公開フォームからの投稿を受け付け、reCAPTCHA検証と
// レート制限を通過したものだけをアクション別のシンクへ追記する。
package main

import (
	"log"

	"github.com/sumika/sumika/internal/gateway"
)

func main() {
	cfg := gateway.LoadConfig()

	server, err := gateway.NewServer(cfg)
	if err != nil {
		log.Fatalf("投稿ゲートウェイサーバーの初期化に失敗: %v", err)
	}
	defer server.Close()

	if cfg.CaptchaEnabled {
		log.Printf("reCAPTCHA検証: 有効")
	} else {
		log.Printf("reCAPTCHA検証: 無効（RECAPTCHA_SECRET未設定のためスキップ）")
	}

	log.Printf("投稿ゲートウェイサービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("投稿ゲートウェイサービスの起動に失敗: %v", err)
	}
}
