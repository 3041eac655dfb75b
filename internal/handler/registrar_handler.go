package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/registrar"
)

// RegistrarServiceInterface は登録ハンドラーが必要とするサービスインターフェース。
type RegistrarServiceInterface interface {
	// CreatePost は投稿を作成し、プロバイダーのレコードにリンクする。
	CreatePost(ctx context.Context, providerID string, in registrar.PostInput) (*model.ContentItem, error)
	// CreateService はサービスを作成し、プロバイダーのレコードにリンクする。
	CreateService(ctx context.Context, providerID string, in registrar.ServiceInput) (*registrar.ServiceListing, error)
	// CreateBooking は予約を作成し、両参加者のレコードにリンクする。
	CreateBooking(ctx context.Context, consumerID string, in registrar.BookingInput) (*registrar.Booking, error)
}

// RegistrarHandler は投稿・サービス・予約登録のHTTPハンドラー。
type RegistrarHandler struct {
	service RegistrarServiceInterface
}

// NewRegistrarHandler はRegistrarHandlerを生成する。
func NewRegistrarHandler(service RegistrarServiceInterface) *RegistrarHandler {
	return &RegistrarHandler{service: service}
}

// createPostRequest は投稿作成リクエストのボディ。
type createPostRequest struct {
	ImageURL    string `json:"image_url"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// createServiceRequest はサービス作成リクエストのボディ。
type createServiceRequest struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// createBookingRequest は予約作成リクエストのボディ。
type createBookingRequest struct {
	ServiceID string    `json:"service_id"`
	StartsAt  time.Time `json:"starts_at"`
}

// CreatePost は投稿を作成する。
// POST /api/posts
func (h *RegistrarHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	item, err := h.service.CreatePost(r.Context(), userID, registrar.PostInput{
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

// CreateService はサービスを作成する。
// POST /api/services
func (h *RegistrarHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	listing, err := h.service.CreateService(r.Context(), userID, registrar.ServiceInput{
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(listing)
}

// CreateBooking は予約を作成する。
// POST /api/bookings
func (h *RegistrarHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), userID, registrar.BookingInput{
		ServiceID: req.ServiceID,
		StartsAt:  req.StartsAt,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(booking)
}
