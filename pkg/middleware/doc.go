// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// 公開フォームエンドポイント向けのCORS設定とパニックリカバリを含む。
package middleware
