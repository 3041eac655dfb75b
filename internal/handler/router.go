package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ichiba/internal/metrics"
	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/saved"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	PrincipalFinder   middleware.PrincipalFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	FollowService    FollowServiceInterface
	FeedService      FeedServiceInterface
	ChatService      ChatServiceInterface
	RegistrarService RegistrarServiceInterface
	SavedLedger      saved.Ledger

	// 運用
	HealthPinger Pinger
	Gatherer     prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → LoggingMiddleware → RecoveryMiddleware → PrincipalMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// /health と /metrics はミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	followHandler := NewFollowHandler(deps.FollowService)
	feedHandler := NewFeedHandler(deps.FeedService)
	chatHandler := NewChatHandler(deps.ChatService)
	registrarHandler := NewRegistrarHandler(deps.RegistrarService)
	savedHandler := NewSavedHandler(deps.SavedLedger)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthPinger))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Principal → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewPrincipalMiddleware(deps.PrincipalFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// フォローグラフ
		r.Route("/api/follows", func(r chi.Router) {
			r.Get("/", followHandler.ListFollowed)
			r.Post("/{providerID}", followHandler.Follow)
			r.Delete("/{providerID}", followHandler.Unfollow)
		})

		// フィード
		r.Route("/api/feed", func(r chi.Router) {
			r.Get("/catalog", feedHandler.Catalog)
			r.Get("/personalized", feedHandler.Personalized)
		})

		// 保存アイテム
		r.Route("/api/saved", func(r chi.Router) {
			r.Get("/", savedHandler.List)
			r.Post("/{itemID}", savedHandler.Toggle)
		})

		// 会話
		r.Route("/api/conversations", func(r chi.Router) {
			r.Post("/", chatHandler.CreateOrGet)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/messages", chatHandler.ListMessages)

				// POST /api/conversations/:id/messages - メッセージ送信（送信専用レート制限を追加）
				r.With(deps.RateLimiter.MessageSendMiddleware()).Post("/messages", chatHandler.SendMessage)
			})
		})

		// 登録（投稿・サービス・予約）
		r.Post("/api/posts", registrarHandler.CreatePost)
		r.Post("/api/services", registrarHandler.CreateService)
		r.Post("/api/bookings", registrarHandler.CreateBooking)
	})

	return r
}
