// Package gateway は投稿ゲートウェイサービスの内部実装を提供する。
//
// マーケティングサイトの公開フォーム（フィードバック、ニュースレター、
// 顧客登録、コンサルタント登録、内見予約）からの投稿を1つのエンドポイントで
// 受け付け、reCAPTCHA検証とIP・アクション別のレート制限を通過したものだけを
// アクションに対応するシンクへ追記する。
package gateway
