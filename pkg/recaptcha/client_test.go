package recaptcha

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestVerify はreCAPTCHA検証クライアントを検証する。
func TestVerify(t *testing.T) {
	t.Parallel()

	t.Run("シークレットとトークンがフォームエンコードで送信されること", func(t *testing.T) {
		t.Parallel()

		var gotSecret, gotResponse, gotContentType string
		verifyAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotContentType = r.Header.Get("Content-Type")
			if err := r.ParseForm(); err != nil {
				t.Errorf("フォームのパースに失敗: %v", err)
			}
			gotSecret = r.PostFormValue("secret")
			gotResponse = r.PostFormValue("response")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"success":true,"score":0.9}`)
		}))
		t.Cleanup(verifyAPI.Close)

		c := New("test-secret", verifyAPI.URL)
		result, err := c.Verify(context.Background(), "test-token")
		if err != nil {
			t.Fatalf("Verifyに失敗: %v", err)
		}

		if gotContentType != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q, want %q", gotContentType, "application/x-www-form-urlencoded")
		}
		if gotSecret != "test-secret" {
			t.Errorf("secret = %q, want %q", gotSecret, "test-secret")
		}
		if gotResponse != "test-token" {
			t.Errorf("response = %q, want %q", gotResponse, "test-token")
		}
		if !result.Success {
			t.Error("Success = false, want true")
		}
		if result.Score == nil || *result.Score != 0.9 {
			t.Errorf("Score = %v, want 0.9", result.Score)
		}
	})

	t.Run("スコアが含まれないレスポンスではScoreがnilになること", func(t *testing.T) {
		t.Parallel()

		verifyAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"success":true}`)
		}))
		t.Cleanup(verifyAPI.Close)

		c := New("test-secret", verifyAPI.URL)
		result, err := c.Verify(context.Background(), "test-token")
		if err != nil {
			t.Fatalf("Verifyに失敗: %v", err)
		}
		if !result.Success {
			t.Error("Success = false, want true")
		}
		if result.Score != nil {
			t.Errorf("Score = %v, want nil", *result.Score)
		}
	})

	t.Run("検証失敗のレスポンスではエラーコードが取得できること", func(t *testing.T) {
		t.Parallel()

		verifyAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"success":false,"error-codes":["invalid-input-response"]}`)
		}))
		t.Cleanup(verifyAPI.Close)

		c := New("test-secret", verifyAPI.URL)
		result, err := c.Verify(context.Background(), "bad-token")
		if err != nil {
			t.Fatalf("Verifyに失敗: %v", err)
		}
		if result.Success {
			t.Error("Success = true, want false")
		}
		if len(result.ErrorCodes) != 1 || result.ErrorCodes[0] != "invalid-input-response" {
			t.Errorf("ErrorCodes = %v, want [invalid-input-response]", result.ErrorCodes)
		}
	})

	t.Run("検証APIが5xxを返す場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		verifyAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(verifyAPI.Close)

		c := New("test-secret", verifyAPI.URL)
		if _, err := c.Verify(context.Background(), "test-token"); err == nil {
			t.Error("5xxレスポンスでエラーが返るべき")
		}
	})

	t.Run("検証APIに到達できない場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		verifyAPI := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		verifyAPI.Close()

		c := New("test-secret", verifyAPI.URL)
		if _, err := c.Verify(context.Background(), "test-token"); err == nil {
			t.Error("接続不能時にエラーが返るべき")
		}
	})

	t.Run("verifyURLが空の場合はデフォルトURLが使われること", func(t *testing.T) {
		t.Parallel()

		c := New("test-secret", "")
		if c.verifyURL != DefaultVerifyURL {
			t.Errorf("verifyURL = %q, want %q", c.verifyURL, DefaultVerifyURL)
		}
	})
}
