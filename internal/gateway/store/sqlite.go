package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// sqliteSchema はSQLiteバックエンドのスキーマ定義。
// 各シンクは追記専用で、レコードの更新・削除は行わない。
// rate_limit_countersのcountのみが作成後に更新される唯一のフィールド。
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rate_limit_counters (
    client_addr TEXT NOT NULL,
    action TEXT NOT NULL,
    window_start INTEGER NOT NULL,
    count INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (client_addr, action, window_start)
);

CREATE TABLE IF NOT EXISTS feedback (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS newsletter_subscribers (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_newsletter_subscribers_email
    ON newsletter_subscribers(email);

CREATE TABLE IF NOT EXISTS customer_subscriptions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    payload TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS consultant_subscriptions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    payload TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS site_visits (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    property TEXT NOT NULL DEFAULT '',
    visit_date TEXT NOT NULL DEFAULT '',
    payload TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// SQLiteStore はSQLiteバックエンドのStore実装。
type SQLiteStore struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// Storeインターフェースの実装を保証する。
var _ Store = (*SQLiteStore)(nil)

// NewSQLite はDSNを指定してSQLiteストアを生成する。
// スキーマの初期化も行う。
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// インメモリDBはコネクションごとに独立した実体になるため接続を1本に固定する
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLiteWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteWithDB は既存のDB接続からSQLiteストアを生成する。
// テストでインメモリDBを共有する場合に使用する。
func NewSQLiteWithDB(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// IncrementCounter はレート制限カウンタを原子的に作成または加算する。
// 読み取りと書き込みを単一のUPSERTにまとめているため、同一キーへの
// 同時リクエストでも上限を超えた許可は発生しない。
func (s *SQLiteStore) IncrementCounter(ctx context.Context, clientAddr, action string, windowStart, limit int64) (int64, bool, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rate_limit_counters (client_addr, action, window_start, count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (client_addr, action, window_start)
		DO UPDATE SET count = count + 1 WHERE count < ?
		RETURNING count
	`, clientAddr, action, windowStart, limit).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		// WHERE句で更新が抑止された場合は行が返らない。
		// 上限到達済みであり、拒否されたリクエストはカウンタを消費しない。
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("レート制限カウンタの更新に失敗: %w", err)
	}
	return count, true, nil
}

// InsertFeedback はフィードバックシンクにレコードを追記する。
func (s *SQLiteStore) InsertFeedback(ctx context.Context, sub Submission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, name, email, phone, message, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.Name, sub.Email, sub.Phone, sub.Message, string(sub.Payload))
	if err != nil {
		return fmt.Errorf("フィードバックの追記に失敗: %w", err)
	}
	return nil
}

// InsertNewsletterSubscriber はニュースレターシンクにレコードを追記する。
// メールアドレスの重複はErrDuplicateとして返す。
func (s *SQLiteStore) InsertNewsletterSubscriber(ctx context.Context, sub Submission) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO newsletter_subscribers (id, email, payload)
		VALUES (?, ?, ?)
		ON CONFLICT (email) DO NOTHING
	`, sub.ID, sub.Email, string(sub.Payload))
	if err != nil {
		return fmt.Errorf("ニュースレター登録の追記に失敗: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

// InsertCustomerSubscription は顧客登録シンクにレコードを追記する。
func (s *SQLiteStore) InsertCustomerSubscription(ctx context.Context, sub Submission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customer_subscriptions (id, name, email, phone, payload)
		VALUES (?, ?, ?, ?, ?)
	`, sub.ID, sub.Name, sub.Email, sub.Phone, string(sub.Payload))
	if err != nil {
		return fmt.Errorf("顧客登録の追記に失敗: %w", err)
	}
	return nil
}

// InsertConsultantSubscription はコンサルタント登録シンクにレコードを追記する。
func (s *SQLiteStore) InsertConsultantSubscription(ctx context.Context, sub Submission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consultant_subscriptions (id, name, email, phone, payload)
		VALUES (?, ?, ?, ?, ?)
	`, sub.ID, sub.Name, sub.Email, sub.Phone, string(sub.Payload))
	if err != nil {
		return fmt.Errorf("コンサルタント登録の追記に失敗: %w", err)
	}
	return nil
}

// InsertSiteVisit は内見予約シンクにレコードを追記する。
func (s *SQLiteStore) InsertSiteVisit(ctx context.Context, sub Submission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO site_visits (id, name, email, phone, property, visit_date, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.Name, sub.Email, sub.Phone, sub.Property, sub.VisitDate, string(sub.Payload))
	if err != nil {
		return fmt.Errorf("内見予約の追記に失敗: %w", err)
	}
	return nil
}

// Ping はデータベースへの疎通を確認する。
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close はデータベース接続を閉じる。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
