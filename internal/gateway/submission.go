package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sumika/sumika/internal/gateway/store"
)

// アクションは投稿の振り分け先シンクを選択するタグ。
const (
	// ActionFeedback はフィードバック投稿。
	ActionFeedback = "feedback"
	// ActionNewsletter はニュースレター購読登録。
	ActionNewsletter = "newsletter"
	// ActionCustomerSubscription は顧客（物件購入希望者）の登録。
	ActionCustomerSubscription = "customer_subscription"
	// ActionConsultantSubscription はコンサルタントの登録。
	ActionConsultantSubscription = "consultant_subscription"
	// ActionSiteVisit は内見予約。
	ActionSiteVisit = "site_visit"
)

// エラーレスポンスのkindフィールドに設定する機械判読可能なエラー種別。
const (
	kindInvalidRequest     = "invalid_request"
	kindMissingToken       = "missing_token"
	kindCaptchaRejected    = "captcha_rejected"
	kindCaptchaUnavailable = "captcha_unavailable"
	kindRateLimited        = "rate_limited"
	kindUnsupportedAction  = "unsupported_action"
	kindSinkFailure        = "sink_failure"
	kindUnexpected         = "unexpected"
)

// errUnsupportedAction は未知のアクション値を表すセンチネルエラー。
var errUnsupportedAction = errors.New("サポートされていないアクションです")

// submissionRequest は投稿エンドポイントのリクエストボディ。
// payloadの形状はアクションごとに異なるため、構造検証では存在のみを確認し、
// アクション別の必須フィールド検証はディスパッチ時に行う。
type submissionRequest struct {
	// Action は振り分け先シンクを選択するタグ。
	Action string `json:"action"`
	// Payload はアクションごとに形状が異なる投稿内容。
	Payload map[string]any `json:"payload"`
	// RecaptchaToken はreCAPTCHAのトークン。検証が有効な環境でのみ必須。
	RecaptchaToken string `json:"recaptchaToken"`
}

// submissionResponse は投稿成功時のレスポンスボディ。
type submissionResponse struct {
	// OK は投稿が受理されたことを示す。
	OK bool `json:"ok"`
	// Duplicated はニュースレターの重複登録を冪等な成功として受理した場合にtrue。
	Duplicated bool `json:"duplicated,omitempty"`
}

// stringField はペイロードから文字列フィールドを取り出す。
// 欠落している場合や文字列以外の場合は空文字を返す。
func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// newSubmission はアクションに応じてペイロードを検証し、シンクに追記する
// レコードを構築する。IDと作成日時はサーバー側で採番・設定する
// （作成日時はシンク側のDEFAULTで付与される）。
func newSubmission(action string, payload map[string]any) (store.Submission, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return store.Submission{}, fmt.Errorf("ペイロードのシリアライズに失敗: %w", err)
	}

	sub := store.Submission{
		ID:      uuid.New().String(),
		Name:    stringField(payload, "name"),
		Email:   stringField(payload, "email"),
		Phone:   stringField(payload, "phone"),
		Payload: raw,
	}

	switch action {
	case ActionFeedback:
		sub.Message = stringField(payload, "message")
		if sub.Message == "" {
			return store.Submission{}, errors.New("messageは必須です")
		}
	case ActionNewsletter, ActionCustomerSubscription, ActionConsultantSubscription:
		if sub.Email == "" {
			return store.Submission{}, errors.New("emailは必須です")
		}
	case ActionSiteVisit:
		sub.Property = stringField(payload, "property")
		sub.VisitDate = stringField(payload, "date")
		if sub.Name == "" {
			return store.Submission{}, errors.New("nameは必須です")
		}
	default:
		return store.Submission{}, errUnsupportedAction
	}

	return sub, nil
}
