package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/saved"
)

// SavedHandler は保存アイテムのHTTPハンドラー。
type SavedHandler struct {
	ledger saved.Ledger
}

// NewSavedHandler はSavedHandlerを生成する。
func NewSavedHandler(ledger saved.Ledger) *SavedHandler {
	return &SavedHandler{ledger: ledger}
}

// savedToggleResponse はトグル結果のレスポンス。
type savedToggleResponse struct {
	ItemID string `json:"item_id"`
	Saved  bool   `json:"saved"`
}

// savedListResponse は保存アイテム一覧のレスポンス。
type savedListResponse struct {
	ItemIDs []string `json:"item_ids"`
}

// Toggle はアイテムの保存状態を反転する。
// POST /api/saved/:itemID
func (h *SavedHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	itemID := chi.URLParam(r, "itemID")

	nowSaved, err := h.ledger.Toggle(r.Context(), userID, itemID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(savedToggleResponse{ItemID: itemID, Saved: nowSaved})
}

// List は保存中アイテムの一覧を取得する。
// GET /api/saved
func (h *SavedHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	itemIDs, err := h.ledger.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if itemIDs == nil {
		itemIDs = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(savedListResponse{ItemIDs: itemIDs})
}
