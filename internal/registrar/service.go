// Package registrar はサービス・投稿・予約の薄い作成＋リンク操作を提供する。
//
// それぞれのドキュメントを作成し、そのIDをユーザーレコードの対応する
// 配列フィールドへ集合和で登録する。ドキュメント内容の詳細な
// バリデーションやCRUDフォームはコア外の責務で、この層は作成とリンクのみ行う。
package registrar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ichiba/internal/identity"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/store"
)

// ContentSanitizer は自由記述テキストのサニタイズインターフェース。
type ContentSanitizer interface {
	Sanitize(raw string) string
}

// ImageURLGuard は画像参照URLの検証インターフェース。
// security.ImageGuardServiceの部分集合として定義する。
type ImageURLGuard interface {
	ValidateURL(rawURL string) error
	VerifyImage(ctx context.Context, rawURL string) error
}

// Service は作成＋リンク操作のサービス層。
type Service struct {
	store      store.Store
	identity   identity.Adapter
	sanitizer  ContentSanitizer
	imageGuard ImageURLGuard
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizer、imageGuardはnil可（検証・サニタイズを行わない）。
func NewService(st store.Store, id identity.Adapter, sanitizer ContentSanitizer, imageGuard ImageURLGuard) *Service {
	return &Service{
		store:      st,
		identity:   id,
		sanitizer:  sanitizer,
		imageGuard: imageGuard,
	}
}

// PostInput は投稿作成の入力。
type PostInput struct {
	ImageURL    string
	Category    string
	Description string
}

// CreatePost はコンテンツアイテムを作成し、プロバイダーのレコードにリンクする。
//
// プロバイダーの表示名・アバター・評価は作成時点のスナップショットとして
// アイテムに非正規化コピーされ、以後のプロフィール変更には追随しない。
// アイテムは作成後イミュータブルで、編集・削除の経路は存在しない。
func (s *Service) CreatePost(ctx context.Context, providerID string, in PostInput) (*model.ContentItem, error) {
	if strings.TrimSpace(in.Category) == "" {
		return nil, model.NewMissingFieldError("category")
	}

	provider, err := s.identity.GetUser(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("プロバイダーの取得に失敗しました: %w", err)
	}
	if provider == nil {
		return nil, model.NewUserNotFoundError(providerID)
	}
	if provider.Role != model.RoleProvider {
		return nil, model.NewInvalidRoleError(string(provider.Role))
	}

	if s.imageGuard != nil && in.ImageURL != "" {
		if err := s.imageGuard.ValidateURL(in.ImageURL); err != nil {
			return nil, model.NewInvalidImageURLError(err.Error())
		}
		// 静的検証後に実際に取得し、到達不能な画像参照を作成前に弾く
		if err := s.imageGuard.VerifyImage(ctx, in.ImageURL); err != nil {
			return nil, model.NewInvalidImageURLError(err.Error())
		}
	}

	description := in.Description
	if s.sanitizer != nil {
		description = s.sanitizer.Sanitize(description)
	}

	item := &model.ContentItem{
		ID:         uuid.NewString(),
		ImageURL:   in.ImageURL,
		Category:   in.Category,
		ProviderID: providerID,
		Provider: model.ProviderSnapshot{
			DisplayName: provider.DisplayName,
			AvatarURL:   provider.AvatarURL,
			Rating:      provider.Rating,
		},
		LikeCount:   0,
		Description: description,
		CreatedAt:   time.Now(),
	}

	if _, err := s.store.Create(ctx, store.CollectionPosts, item.ID, item); err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}
	if err := s.store.AppendToArrayField(ctx, store.CollectionUsers, providerID, "posts", item.ID); err != nil {
		return nil, fmt.Errorf("投稿のリンクに失敗しました: %w", err)
	}
	return item, nil
}

// ServiceListing はプロバイダーが提供するサービスのドキュメント。
type ServiceListing struct {
	ID          string    `json:"id"`
	ProviderID  string    `json:"provider_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// ServiceInput はサービス作成の入力。
type ServiceInput struct {
	Title       string
	Category    string
	Description string
	Price       float64
}

// CreateService はサービスを作成し、プロバイダーのレコードにリンクする。
func (s *Service) CreateService(ctx context.Context, providerID string, in ServiceInput) (*ServiceListing, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, model.NewMissingFieldError("title")
	}

	provider, err := s.identity.GetUser(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("プロバイダーの取得に失敗しました: %w", err)
	}
	if provider == nil {
		return nil, model.NewUserNotFoundError(providerID)
	}
	if provider.Role != model.RoleProvider {
		return nil, model.NewInvalidRoleError(string(provider.Role))
	}

	description := in.Description
	if s.sanitizer != nil {
		description = s.sanitizer.Sanitize(description)
	}

	listing := &ServiceListing{
		ID:          uuid.NewString(),
		ProviderID:  providerID,
		Title:       in.Title,
		Category:    in.Category,
		Description: description,
		Price:       in.Price,
		CreatedAt:   time.Now(),
	}

	if _, err := s.store.Create(ctx, store.CollectionServices, listing.ID, listing); err != nil {
		return nil, fmt.Errorf("サービスの作成に失敗しました: %w", err)
	}
	if err := s.store.AppendToArrayField(ctx, store.CollectionUsers, providerID, "services", listing.ID); err != nil {
		return nil, fmt.Errorf("サービスのリンクに失敗しました: %w", err)
	}
	return listing, nil
}

// Booking はサービス予約のドキュメント。
type Booking struct {
	ID         string    `json:"id"`
	ServiceID  string    `json:"service_id"`
	ConsumerID string    `json:"consumer_id"`
	ProviderID string    `json:"provider_id"`
	StartsAt   time.Time `json:"starts_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// BookingInput は予約作成の入力。
type BookingInput struct {
	ServiceID string
	StartsAt  time.Time
}

// CreateBooking は予約を作成し、コンシューマーとプロバイダー双方の
// レコードにリンクする。
func (s *Service) CreateBooking(ctx context.Context, consumerID string, in BookingInput) (*Booking, error) {
	if strings.TrimSpace(in.ServiceID) == "" {
		return nil, model.NewMissingFieldError("service_id")
	}

	consumer, err := s.identity.GetUser(ctx, consumerID)
	if err != nil {
		return nil, fmt.Errorf("コンシューマーの取得に失敗しました: %w", err)
	}
	if consumer == nil {
		return nil, model.NewUserNotFoundError(consumerID)
	}

	doc, err := s.store.GetByID(ctx, store.CollectionServices, in.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("サービスの取得に失敗しました: %w", err)
	}
	if doc == nil {
		return nil, model.NewItemNotFoundError(in.ServiceID)
	}
	listing := &ServiceListing{}
	if err := doc.Decode(listing); err != nil {
		return nil, fmt.Errorf("サービスのデコードに失敗しました: %w", err)
	}

	booking := &Booking{
		ID:         uuid.NewString(),
		ServiceID:  in.ServiceID,
		ConsumerID: consumerID,
		ProviderID: listing.ProviderID,
		StartsAt:   in.StartsAt,
		CreatedAt:  time.Now(),
	}

	if _, err := s.store.Create(ctx, store.CollectionBookings, booking.ID, booking); err != nil {
		return nil, fmt.Errorf("予約の作成に失敗しました: %w", err)
	}
	if err := s.store.AppendToArrayField(ctx, store.CollectionUsers, consumerID, "bookings", booking.ID); err != nil {
		return nil, fmt.Errorf("予約のリンクに失敗しました: %w", err)
	}
	if err := s.store.AppendToArrayField(ctx, store.CollectionUsers, listing.ProviderID, "bookings", booking.ID); err != nil {
		return nil, fmt.Errorf("プロバイダー側への予約リンクに失敗しました: %w", err)
	}
	return booking, nil
}
