package gateway

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sumika/sumika/internal/gateway/store"
	"github.com/sumika/sumika/pkg/middleware"
	"github.com/sumika/sumika/pkg/recaptcha"
)

const (
	// rateLimitWindow はレート制限の固定ウィンドウ幅。
	// ウィンドウ開始時刻はエポックからの経過時間をこの幅で切り捨てて求める。
	rateLimitWindow = 15 * time.Minute
	// rateLimitMax は1ウィンドウ・1クライアント・1アクションあたりの許容リクエスト数。
	rateLimitMax = 5
	// captchaMinScore は受理するreCAPTCHAスコアの下限。
	// スコアがレスポンスに含まれない場合は閾値を適用しない。
	captchaMinScore = 0.5
	// unknownClientAddr はX-Forwarded-Forヘッダーが無い場合のクライアントアドレス。
	unknownClientAddr = "unknown"
)

// Server は投稿ゲートウェイサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store はシンクとレート制限カウンタの永続化層。
	store store.Store
	// captcha はreCAPTCHA検証クライアント。検証が無効な環境ではnil。
	captcha *recaptcha.Client
	// captchaEnabled はreCAPTCHA検証を行うかどうかの明示的なフラグ。
	captchaEnabled bool
	// now は現在時刻の取得関数。テストでウィンドウ境界を制御するために差し替える。
	now func() time.Time
}

// NewServer は新しい投稿ゲートウェイサーバーを生成する。
// DATABASE_URLが設定されていればPostgres、なければSQLiteをストアとして使用する。
// ストアに到達できない場合はエラーを返し、起動を失敗させる。
func NewServer(cfg Config) (*Server, error) {
	var (
		st  store.Store
		err error
	)
	if cfg.DatabaseURL != "" {
		st, err = store.NewPostgres(cfg.DatabaseURL)
	} else {
		st, err = store.NewSQLite(cfg.SQLiteDSN)
	}
	if err != nil {
		return nil, fmt.Errorf("ストアの初期化に失敗: %w", err)
	}

	var verifier *recaptcha.Client
	if cfg.CaptchaEnabled {
		verifier = recaptcha.New(cfg.RecaptchaSecret, cfg.RecaptchaVerifyURL)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS())

	s := &Server{
		router:         router,
		port:           cfg.Port,
		store:          st,
		captcha:        verifier,
		captchaEnabled: cfg.CaptchaEnabled,
		now:            time.Now,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Close はストアへの接続を閉じる。
func (s *Server) Close() error {
	return s.store.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		// フォーム投稿の受付（OPTIONSプリフライトはCORSミドルウェアが応答する）
		api.POST("/submissions", s.handleSubmit())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "ng", "service": "gateway"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})
}

// handleSubmit はフォーム投稿を処理するハンドラを返す。
// 処理順序は固定で、最初の失敗で打ち切る:
// 構造検証 → reCAPTCHA検証 → レート制限 → シンクへのディスパッチ。
// 先行ステップが失敗した場合、後続の副作用は一切発生しない。
func (s *Server) handleSubmit() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submissionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です", "kind": kindInvalidRequest})
			return
		}

		// 構造検証ではactionとpayloadの存在のみを確認する。
		// アクション別の必須フィールド検証はディスパッチ時に行う。
		if req.Action == "" || req.Payload == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "actionとpayloadは必須です", "kind": kindInvalidRequest})
			return
		}

		// reCAPTCHA検証。シークレット未設定の環境では検証自体をスキップする
		// （意図的なフェイルオープン設定）。
		if s.captchaEnabled {
			if req.RecaptchaToken == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "recaptchaTokenは必須です", "kind": kindMissingToken})
				return
			}

			result, err := s.captcha.Verify(c.Request.Context(), req.RecaptchaToken)
			if err != nil {
				log.Printf("reCAPTCHA検証APIの呼び出しに失敗: %v", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reCAPTCHA検証が利用できません", "kind": kindCaptchaUnavailable})
				return
			}

			// スコアはレスポンスに含まれる場合のみ閾値を適用する。
			if !result.Success || (result.Score != nil && *result.Score < captchaMinScore) {
				c.JSON(http.StatusForbidden, gin.H{"error": "reCAPTCHA検証に失敗しました", "kind": kindCaptchaRejected})
				return
			}
		}

		// レート制限。カウンタの作成と加算は単一の原子的なUPSERTで行う。
		clientAddr := clientAddress(c)
		windowStart := windowStartMillis(s.now())
		_, allowed, err := s.store.IncrementCounter(c.Request.Context(), clientAddr, req.Action, windowStart, rateLimitMax)
		if err != nil {
			log.Printf("レート制限カウンタの更新に失敗: client=%s, action=%s, error=%v", clientAddr, req.Action, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "内部サーバーエラーが発生しました", "kind": kindUnexpected})
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "リクエストが多すぎます。しばらくしてから再試行してください", "kind": kindRateLimited})
			return
		}

		// ディスパッチ。未知のアクションの検出はレート制限の後に行うため、
		// 未知アクションのリクエストもウィンドウの枠を消費する。
		sub, err := newSubmission(req.Action, req.Payload)
		if err != nil {
			if errors.Is(err, errUnsupportedAction) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": kindUnsupportedAction})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": kindInvalidRequest})
			return
		}

		duplicated := false
		switch req.Action {
		case ActionFeedback:
			err = s.store.InsertFeedback(c.Request.Context(), sub)
		case ActionNewsletter:
			err = s.store.InsertNewsletterSubscriber(c.Request.Context(), sub)
			if errors.Is(err, store.ErrDuplicate) {
				// 重複登録は冪等な成功として扱い、duplicatedフラグで通知する。
				duplicated = true
				err = nil
			}
		case ActionCustomerSubscription:
			err = s.store.InsertCustomerSubscription(c.Request.Context(), sub)
		case ActionConsultantSubscription:
			err = s.store.InsertConsultantSubscription(c.Request.Context(), sub)
		case ActionSiteVisit:
			err = s.store.InsertSiteVisit(c.Request.Context(), sub)
		}
		if err != nil {
			log.Printf("シンクへの追記に失敗: action=%s, error=%v", req.Action, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": kindSinkFailure})
			return
		}

		c.JSON(http.StatusOK, submissionResponse{OK: true, Duplicated: duplicated})
	}
}

// clientAddress はX-Forwarded-Forヘッダーの先頭エントリからクライアントアドレスを導出する。
// ヘッダーが無い場合は"unknown"を返す。RemoteAddrへのフォールバックは行わない。
func clientAddress(c *gin.Context) string {
	fwd := c.GetHeader("X-Forwarded-For")
	if fwd == "" {
		return unknownClientAddr
	}
	addr, _, _ := strings.Cut(fwd, ",")
	return strings.TrimSpace(addr)
}

// windowStartMillis は時刻をウィンドウ幅で切り捨てたエポックミリ秒を返す。
func windowStartMillis(now time.Time) int64 {
	windowMS := rateLimitWindow.Milliseconds()
	return now.UnixMilli() / windowMS * windowMS
}
