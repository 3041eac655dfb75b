// Package model はドメインモデルを定義する。
package model

import "time"

// ProviderSnapshot はアイテム作成時点のプロバイダー情報の非正規化コピー。
// プロバイダーのプロフィールが後から変わっても更新されない。
type ProviderSnapshot struct {
	DisplayName string  `json:"display_name"`
	AvatarURL   string  `json:"avatar_url"`
	Rating      float64 `json:"rating"`
}

// ContentItem はプロバイダーが投稿したコンテンツを表す。
// 作成後はイミュータブルで、編集・削除の経路は存在しない。
type ContentItem struct {
	ID          string           `json:"id"`
	ImageURL    string           `json:"image_url"`
	Category    string           `json:"category"`
	ProviderID  string           `json:"provider_id"`
	Provider    ProviderSnapshot `json:"provider"`
	LikeCount   int              `json:"like_count"`
	Description string           `json:"description"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CategoryAll はカタログビューでカテゴリフィルタを無効化する特殊値。
const CategoryAll = "All"
