package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ichiba/internal/middleware"
)

// FollowServiceInterface はフォローハンドラーが必要とするサービスインターフェース。
type FollowServiceInterface interface {
	// Follow はコンシューマーのフォロー集合にプロバイダーを追加する。冪等。
	Follow(ctx context.Context, consumerID, providerID string) error
	// Unfollow はコンシューマーのフォロー集合からプロバイダーを除去する。冪等。
	Unfollow(ctx context.Context, consumerID, providerID string) error
	// FollowedProviders はコンシューマーがフォローしているプロバイダーIDの一覧を返す。
	FollowedProviders(ctx context.Context, consumerID string) ([]string, error)
}

// FollowHandler はフォローグラフのHTTPハンドラー。
type FollowHandler struct {
	service FollowServiceInterface
}

// NewFollowHandler はFollowHandlerを生成する。
func NewFollowHandler(service FollowServiceInterface) *FollowHandler {
	return &FollowHandler{service: service}
}

// followListResponse はフォロー一覧のレスポンス。
type followListResponse struct {
	Followed []string `json:"followed"`
}

// Follow はプロバイダーをフォローする。
// POST /api/follows/:providerID
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	providerID := chi.URLParam(r, "providerID")

	if err := h.service.Follow(r.Context(), userID, providerID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unfollow はプロバイダーのフォローを解除する。
// DELETE /api/follows/:providerID
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	providerID := chi.URLParam(r, "providerID")

	if err := h.service.Unfollow(r.Context(), userID, providerID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListFollowed はフォロー中のプロバイダー一覧を取得する。
// GET /api/follows
func (h *FollowHandler) ListFollowed(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	followed, err := h.service.FollowedProviders(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if followed == nil {
		followed = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(followListResponse{Followed: followed})
}
