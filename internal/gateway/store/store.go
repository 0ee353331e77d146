// Package store は投稿ゲートウェイの永続化層を提供する。
// 5種類の追記専用シンク（フィードバック、ニュースレター、顧客登録、
// コンサルタント登録、内見予約）とレート制限カウンタを管理する。
// バックエンドはSQLite（デフォルト）とPostgres（DATABASE_URL指定時）の2種類。
package store

import (
	"context"
	"errors"
)

// ErrDuplicate はユニーク制約違反（重複登録）を表すセンチネルエラー。
// ニュースレター登録の重複はエラーではなく冪等な成功として扱うため、
// 呼び出し側はこのエラーを判別して成功レスポンスに変換する。
var ErrDuplicate = errors.New("重複するレコードが既に存在します")

// Submission はシンクに追記する1件の投稿レコード。
// 型付きカラムはペイロードから抽出した代表的なフィールドで、
// ペイロード全体はPayloadにJSONとして保持する（シンクは任意形状を受け入れる）。
type Submission struct {
	// ID はサーバー側で採番するレコードの一意識別子。
	ID string
	// Name は投稿者の氏名。
	Name string
	// Email は投稿者のメールアドレス。
	Email string
	// Phone は投稿者の電話番号。
	Phone string
	// Message はフィードバック本文。
	Message string
	// Property は内見予約の対象物件。
	Property string
	// VisitDate は内見予約の希望日。
	VisitDate string
	// Payload はクライアントが送信したペイロード全体のJSON表現。
	Payload []byte
}

// Store は投稿ゲートウェイが依存する永続化層のインターフェース。
type Store interface {
	// IncrementCounter は(clientAddr, action, windowStart)のカウンタを
	// 原子的に作成または加算する。加算後のカウント値がlimit以下であれば
	// allowed=trueを返す。上限に達している場合はカウンタを加算せずに
	// allowed=falseを返す（拒否されたリクエストは枠を消費しない）。
	IncrementCounter(ctx context.Context, clientAddr, action string, windowStart, limit int64) (count int64, allowed bool, err error)

	// InsertFeedback はフィードバックシンクにレコードを追記する。
	InsertFeedback(ctx context.Context, sub Submission) error

	// InsertNewsletterSubscriber はニュースレターシンクにレコードを追記する。
	// メールアドレスが既に登録済みの場合はErrDuplicateを返す。
	InsertNewsletterSubscriber(ctx context.Context, sub Submission) error

	// InsertCustomerSubscription は顧客登録シンクにレコードを追記する。
	InsertCustomerSubscription(ctx context.Context, sub Submission) error

	// InsertConsultantSubscription はコンサルタント登録シンクにレコードを追記する。
	InsertConsultantSubscription(ctx context.Context, sub Submission) error

	// InsertSiteVisit は内見予約シンクにレコードを追記する。
	InsertSiteVisit(ctx context.Context, sub Submission) error

	// Ping はストアへの疎通を確認する。ヘルスチェックで使用する。
	Ping(ctx context.Context) error

	// Close はストアへの接続を閉じる。
	Close() error
}
