package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/registrar"
)

// --- モック定義 ---

// mockRegistrarService はRegistrarServiceInterfaceのモック実装。
type mockRegistrarService struct {
	createPostFn    func(ctx context.Context, providerID string, in registrar.PostInput) (*model.ContentItem, error)
	createServiceFn func(ctx context.Context, providerID string, in registrar.ServiceInput) (*registrar.ServiceListing, error)
	createBookingFn func(ctx context.Context, consumerID string, in registrar.BookingInput) (*registrar.Booking, error)
}

func (m *mockRegistrarService) CreatePost(ctx context.Context, providerID string, in registrar.PostInput) (*model.ContentItem, error) {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, providerID, in)
	}
	return nil, nil
}

func (m *mockRegistrarService) CreateService(ctx context.Context, providerID string, in registrar.ServiceInput) (*registrar.ServiceListing, error) {
	if m.createServiceFn != nil {
		return m.createServiceFn(ctx, providerID, in)
	}
	return nil, nil
}

func (m *mockRegistrarService) CreateBooking(ctx context.Context, consumerID string, in registrar.BookingInput) (*registrar.Booking, error) {
	if m.createBookingFn != nil {
		return m.createBookingFn(ctx, consumerID, in)
	}
	return nil, nil
}

// --- POST /api/posts テスト ---

func TestRegistrarHandler_CreatePost_Success(t *testing.T) {
	svc := &mockRegistrarService{
		createPostFn: func(ctx context.Context, providerID string, in registrar.PostInput) (*model.ContentItem, error) {
			if providerID != "provider-1" {
				t.Errorf("providerID = %q, want %q", providerID, "provider-1")
			}
			if in.Category != "Beauty" {
				t.Errorf("category = %q, want %q", in.Category, "Beauty")
			}
			return &model.ContentItem{
				ID:         "post-1",
				ImageURL:   in.ImageURL,
				Category:   in.Category,
				ProviderID: providerID,
			}, nil
		},
	}

	h := NewRegistrarHandler(svc)

	reqBody := bytes.NewBufferString(`{"image_url":"https://cdn.example.com/nail.jpg","category":"Beauty","description":"新作ネイル"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", reqBody)
	req = withUserID(req, "provider-1")
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	var item model.ContentItem
	if err := json.NewDecoder(w.Body).Decode(&item); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if item.ID != "post-1" {
		t.Errorf("id = %q, want %q", item.ID, "post-1")
	}
}

func TestRegistrarHandler_CreatePost_InvalidImageURL_Returns403(t *testing.T) {
	svc := &mockRegistrarService{
		createPostFn: func(ctx context.Context, providerID string, in registrar.PostInput) (*model.ContentItem, error) {
			return nil, model.NewInvalidImageURLError("プライベートアドレスへの参照は許可されていません")
		},
	}

	h := NewRegistrarHandler(svc)

	reqBody := bytes.NewBufferString(`{"image_url":"https://127.0.0.1/x.jpg","category":"Beauty"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", reqBody)
	req = withUserID(req, "provider-1")
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}

	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeInvalidImageURL {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidImageURL)
	}
}

func TestRegistrarHandler_CreatePost_MissingCategory_Returns400(t *testing.T) {
	svc := &mockRegistrarService{
		createPostFn: func(ctx context.Context, providerID string, in registrar.PostInput) (*model.ContentItem, error) {
			return nil, model.NewMissingFieldError("category")
		},
	}

	h := NewRegistrarHandler(svc)

	reqBody := bytes.NewBufferString(`{"image_url":"https://cdn.example.com/x.jpg"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", reqBody)
	req = withUserID(req, "provider-1")
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestRegistrarHandler_CreatePost_InvalidBody_Returns400(t *testing.T) {
	h := NewRegistrarHandler(&mockRegistrarService{})

	reqBody := bytes.NewBufferString(`not json`)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", reqBody)
	req = withUserID(req, "provider-1")
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestRegistrarHandler_CreatePost_NoAuth_Returns401(t *testing.T) {
	h := NewRegistrarHandler(&mockRegistrarService{})

	reqBody := bytes.NewBufferString(`{"category":"Beauty"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", reqBody)
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- POST /api/services テスト ---

func TestRegistrarHandler_CreateService_Success(t *testing.T) {
	svc := &mockRegistrarService{
		createServiceFn: func(ctx context.Context, providerID string, in registrar.ServiceInput) (*registrar.ServiceListing, error) {
			if in.Title != "ジェルネイル" {
				t.Errorf("title = %q, want %q", in.Title, "ジェルネイル")
			}
			if in.Price != 5500 {
				t.Errorf("price = %v, want 5500", in.Price)
			}
			return &registrar.ServiceListing{
				ID:         "svc-1",
				ProviderID: providerID,
				Title:      in.Title,
				Price:      in.Price,
			}, nil
		},
	}

	h := NewRegistrarHandler(svc)

	reqBody := bytes.NewBufferString(`{"title":"ジェルネイル","category":"Beauty","description":"シンプルデザイン","price":5500}`)
	req := httptest.NewRequest(http.MethodPost, "/api/services", reqBody)
	req = withUserID(req, "provider-1")
	w := httptest.NewRecorder()

	h.CreateService(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	var listing registrar.ServiceListing
	if err := json.NewDecoder(w.Body).Decode(&listing); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if listing.ID != "svc-1" {
		t.Errorf("id = %q, want %q", listing.ID, "svc-1")
	}
}

func TestRegistrarHandler_CreateService_InvalidRole_Returns400(t *testing.T) {
	svc := &mockRegistrarService{
		createServiceFn: func(ctx context.Context, providerID string, in registrar.ServiceInput) (*registrar.ServiceListing, error) {
			return nil, model.NewInvalidRoleError("consumer")
		},
	}

	h := NewRegistrarHandler(svc)

	reqBody := bytes.NewBufferString(`{"title":"ジェルネイル","category":"Beauty"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/services", reqBody)
	req = withUserID(req, "consumer-1")
	w := httptest.NewRecorder()

	h.CreateService(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeInvalidRole {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidRole)
	}
}

// --- POST /api/bookings テスト ---

func TestRegistrarHandler_CreateBooking_Success(t *testing.T) {
	startsAt := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	svc := &mockRegistrarService{
		createBookingFn: func(ctx context.Context, consumerID string, in registrar.BookingInput) (*registrar.Booking, error) {
			if consumerID != "consumer-1" {
				t.Errorf("consumerID = %q, want %q", consumerID, "consumer-1")
			}
			if !in.StartsAt.Equal(startsAt) {
				t.Errorf("startsAt = %v, want %v", in.StartsAt, startsAt)
			}
			return &registrar.Booking{
				ID:         "booking-1",
				ServiceID:  in.ServiceID,
				ConsumerID: consumerID,
				ProviderID: "provider-1",
				StartsAt:   in.StartsAt,
			}, nil
		},
	}

	h := NewRegistrarHandler(svc)

	reqBody := bytes.NewBufferString(`{"service_id":"svc-1","starts_at":"2026-09-15T10:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", reqBody)
	req = withUserID(req, "consumer-1")
	w := httptest.NewRecorder()

	h.CreateBooking(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	var booking registrar.Booking
	if err := json.NewDecoder(w.Body).Decode(&booking); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if booking.ID != "booking-1" || booking.ProviderID != "provider-1" {
		t.Errorf("booking = %+v, want ID=booking-1 ProviderID=provider-1", booking)
	}
}

func TestRegistrarHandler_CreateBooking_ServiceNotFound_Returns404(t *testing.T) {
	svc := &mockRegistrarService{
		createBookingFn: func(ctx context.Context, consumerID string, in registrar.BookingInput) (*registrar.Booking, error) {
			return nil, model.NewItemNotFoundError(in.ServiceID)
		},
	}

	h := NewRegistrarHandler(svc)

	reqBody := bytes.NewBufferString(`{"service_id":"no-such","starts_at":"2026-09-15T10:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", reqBody)
	req = withUserID(req, "consumer-1")
	w := httptest.NewRecorder()

	h.CreateBooking(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}
