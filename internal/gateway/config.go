package gateway

import (
	"os"

	"github.com/sumika/sumika/pkg/recaptcha"
)

// Config はゲートウェイの実行時設定。すべて環境変数から読み込む。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// DatabaseURL はPostgresの接続URL。空の場合はSQLiteを使用する。
	DatabaseURL string
	// SQLiteDSN はSQLiteのDSN。DatabaseURLが空の場合のみ使用する。
	SQLiteDSN string
	// CaptchaEnabled はreCAPTCHA検証を行うかどうか。
	// シークレット未設定の環境では検証をスキップする（意図的なフェイルオープン）。
	// 暗黙のnilチェックではなく明示的なフラグとして保持する。
	CaptchaEnabled bool
	// RecaptchaSecret はreCAPTCHA検証用のシークレット。
	RecaptchaSecret string
	// RecaptchaVerifyURL は検証APIのエンドポイントURL。
	RecaptchaVerifyURL string
}

// LoadConfig は環境変数から設定を読み込む。
// ストア接続情報の不備は起動時エラーとして扱うため、ここでは検証しない
// （ストア生成時のfail-fastに委ねる）。
func LoadConfig() Config {
	secret := os.Getenv("RECAPTCHA_SECRET")

	return Config{
		Port:               getEnvOr("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLiteDSN:          getEnvOr("GATEWAY_DB", "/data/gateway.db?_journal_mode=WAL&_busy_timeout=5000"),
		CaptchaEnabled:     secret != "",
		RecaptchaSecret:    secret,
		RecaptchaVerifyURL: getEnvOr("RECAPTCHA_VERIFY_URL", recaptcha.DefaultVerifyURL),
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
