package gateway

import (
	"testing"

	"github.com/sumika/sumika/pkg/recaptcha"
)

// TestLoadConfig は環境変数からの設定読み込みを検証する。
func TestLoadConfig(t *testing.T) {
	t.Run("シークレット未設定の場合はreCAPTCHA検証が無効になること", func(t *testing.T) {
		t.Setenv("RECAPTCHA_SECRET", "")
		t.Setenv("PORT", "")
		t.Setenv("DATABASE_URL", "")

		cfg := LoadConfig()

		if cfg.CaptchaEnabled {
			t.Error("CaptchaEnabled = true, want false")
		}
		if cfg.Port != "8080" {
			t.Errorf("Port = %q, want %q", cfg.Port, "8080")
		}
		if cfg.RecaptchaVerifyURL != recaptcha.DefaultVerifyURL {
			t.Errorf("RecaptchaVerifyURL = %q, want %q", cfg.RecaptchaVerifyURL, recaptcha.DefaultVerifyURL)
		}
	})

	t.Run("シークレット設定時はreCAPTCHA検証が有効になること", func(t *testing.T) {
		t.Setenv("RECAPTCHA_SECRET", "secret-key")

		cfg := LoadConfig()

		if !cfg.CaptchaEnabled {
			t.Error("CaptchaEnabled = false, want true")
		}
		if cfg.RecaptchaSecret != "secret-key" {
			t.Errorf("RecaptchaSecret = %q, want %q", cfg.RecaptchaSecret, "secret-key")
		}
	})

	t.Run("環境変数が設定されている場合はその値が使われること", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		t.Setenv("DATABASE_URL", "postgres://localhost:5432/sumika")
		t.Setenv("RECAPTCHA_VERIFY_URL", "http://localhost:18080/siteverify")

		cfg := LoadConfig()

		if cfg.Port != "9000" {
			t.Errorf("Port = %q, want %q", cfg.Port, "9000")
		}
		if cfg.DatabaseURL != "postgres://localhost:5432/sumika" {
			t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "postgres://localhost:5432/sumika")
		}
		if cfg.RecaptchaVerifyURL != "http://localhost:18080/siteverify" {
			t.Errorf("RecaptchaVerifyURL = %q, want %q", cfg.RecaptchaVerifyURL, "http://localhost:18080/siteverify")
		}
	})
}
