package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresSchema はPostgresバックエンドのスキーマ定義。
// sqliteSchemaと論理的に同一の構造を保つこと。
const postgresSchema = `
CREATE TABLE IF NOT EXISTS rate_limit_counters (
    client_addr TEXT NOT NULL,
    action TEXT NOT NULL,
    window_start BIGINT NOT NULL,
    count BIGINT NOT NULL DEFAULT 1,
    PRIMARY KEY (client_addr, action, window_start)
);

CREATE TABLE IF NOT EXISTS feedback (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL,
    payload JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS newsletter_subscribers (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    payload JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS customer_subscriptions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    payload JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS consultant_subscriptions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    payload JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS site_visits (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    property TEXT NOT NULL DEFAULT '',
    visit_date TEXT NOT NULL DEFAULT '',
    payload JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore はPostgresバックエンドのStore実装。
// Supabase等のマネージドPostgresへの接続を想定している。
type PostgresStore struct {
	// pool はpgxのコネクションプール。
	pool *pgxpool.Pool
}

// Storeインターフェースの実装を保証する。
var _ Store = (*PostgresStore)(nil)

// NewPostgres は接続URLを指定してPostgresストアを生成する。
// 接続確認とスキーマ初期化を行い、到達できない場合は起動時に失敗させる。
func NewPostgres(databaseURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}

	// pgxの拡張プロトコルは複文を扱えないため、1文ずつ実行する
	for _, stmt := range strings.Split(postgresSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
		}
	}

	return &PostgresStore{pool: pool}, nil
}

// IncrementCounter はレート制限カウンタを原子的に作成または加算する。
func (p *PostgresStore) IncrementCounter(ctx context.Context, clientAddr, action string, windowStart, limit int64) (int64, bool, error) {
	var count int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO rate_limit_counters (client_addr, action, window_start, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (client_addr, action, window_start)
		DO UPDATE SET count = rate_limit_counters.count + 1
		WHERE rate_limit_counters.count < $4
		RETURNING count
	`, clientAddr, action, windowStart, limit).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("レート制限カウンタの更新に失敗: %w", err)
	}
	return count, true, nil
}

// InsertFeedback はフィードバックシンクにレコードを追記する。
func (p *PostgresStore) InsertFeedback(ctx context.Context, sub Submission) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO feedback (id, name, email, phone, message, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sub.ID, sub.Name, sub.Email, sub.Phone, sub.Message, sub.Payload)
	if err != nil {
		return fmt.Errorf("フィードバックの追記に失敗: %w", err)
	}
	return nil
}

// InsertNewsletterSubscriber はニュースレターシンクにレコードを追記する。
// メールアドレスの重複はErrDuplicateとして返す。
func (p *PostgresStore) InsertNewsletterSubscriber(ctx context.Context, sub Submission) error {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO newsletter_subscribers (id, email, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
	`, sub.ID, sub.Email, sub.Payload)
	if err != nil {
		return fmt.Errorf("ニュースレター登録の追記に失敗: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// InsertCustomerSubscription は顧客登録シンクにレコードを追記する。
func (p *PostgresStore) InsertCustomerSubscription(ctx context.Context, sub Submission) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO customer_subscriptions (id, name, email, phone, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, sub.ID, sub.Name, sub.Email, sub.Phone, sub.Payload)
	if err != nil {
		return fmt.Errorf("顧客登録の追記に失敗: %w", err)
	}
	return nil
}

// InsertConsultantSubscription はコンサルタント登録シンクにレコードを追記する。
func (p *PostgresStore) InsertConsultantSubscription(ctx context.Context, sub Submission) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO consultant_subscriptions (id, name, email, phone, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, sub.ID, sub.Name, sub.Email, sub.Phone, sub.Payload)
	if err != nil {
		return fmt.Errorf("コンサルタント登録の追記に失敗: %w", err)
	}
	return nil
}

// InsertSiteVisit は内見予約シンクにレコードを追記する。
func (p *PostgresStore) InsertSiteVisit(ctx context.Context, sub Submission) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO site_visits (id, name, email, phone, property, visit_date, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sub.ID, sub.Name, sub.Email, sub.Phone, sub.Property, sub.VisitDate, sub.Payload)
	if err != nil {
		return fmt.Errorf("内見予約の追記に失敗: %w", err)
	}
	return nil
}

// Ping はデータベースへの疎通を確認する。
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close はコネクションプールを閉じる。
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
