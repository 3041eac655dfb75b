package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// Catalog は検索クエリとカテゴリでフィルタした全体フィードを返す。
	Catalog(ctx context.Context, query, category string) ([]model.ContentItem, error)
	// Personalized はフォロー中のプロバイダーの投稿のみを返す。
	Personalized(ctx context.Context, viewerID string) ([]model.ContentItem, error)
}

// FeedHandler はフィード導出のHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface) *FeedHandler {
	return &FeedHandler{service: service}
}

// feedResponse はフィードのレスポンス。
type feedResponse struct {
	Items []model.ContentItem `json:"items"`
}

// Catalog は全体フィードを取得する。
// GET /api/feed/catalog?q=xxx&category=xxx
func (h *FeedHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")

	items, err := h.service.Catalog(r.Context(), query, category)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feedResponse{Items: items})
}

// Personalized はフォロー中プロバイダーの投稿フィードを取得する。
// GET /api/feed/personalized
func (h *FeedHandler) Personalized(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	items, err := h.service.Personalized(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feedResponse{Items: items})
}
