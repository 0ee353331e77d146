// Package recaptcha はreCAPTCHA検証API（siteverify）のクライアントを提供する。
// トークンとシークレットをフォームエンコードで送信し、判定結果とスコアを受け取る。
package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL はGoogleのreCAPTCHA検証エンドポイント。
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// defaultTimeout は検証APIへのリクエストタイムアウト。
// 検証APIの応答遅延がゲートウェイ全体のハングに波及しないよう明示的に設定する。
const defaultTimeout = 10 * time.Second

// Result は検証APIのレスポンス。
// Scoreはv3のみ返却されるため、欠落（nil）と0.0を区別できるようポインタで保持する。
type Result struct {
	// Success は検証が成功したかどうか。
	Success bool `json:"success"`
	// Score はリクエストが人間による操作である確度（0.0〜1.0）。
	Score *float64 `json:"score,omitempty"`
	// ChallengeTS はチャレンジが解かれた日時。
	ChallengeTS string `json:"challenge_ts,omitempty"`
	// Hostname はチャレンジが解かれたサイトのホスト名。
	Hostname string `json:"hostname,omitempty"`
	// ErrorCodes は検証失敗時のエラーコード一覧。
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// Client はreCAPTCHA検証APIへのHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// secret はサイトごとに発行される検証用シークレット。
	secret string
	// verifyURL は検証APIのエンドポイントURL。
	verifyURL string
}

// New は新しいreCAPTCHA検証クライアントを生成する。
// verifyURLが空の場合はDefaultVerifyURLを使用する。
func New(secret, verifyURL string) *Client {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		secret:    secret,
		verifyURL: verifyURL,
	}
}

// Verify はトークンを検証APIに送信し、判定結果を返す。
// ネットワークエラーやタイムアウトはerrorとして返し、判定の成否はResultで表す。
func (c *Client) Verify(ctx context.Context, token string) (*Result, error) {
	form := url.Values{
		"secret":   {c.secret},
		"response": {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("検証リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("検証APIへのリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("検証APIがエラーを返却: status=%d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("検証レスポンスのデシリアライズに失敗: %w", err)
	}
	return &result, nil
}
