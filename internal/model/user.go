// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。
type Role string

const (
	// RoleConsumer はサービスを探す側のユーザー。
	RoleConsumer Role = "consumer"
	// RoleProvider はサービスを提供する側のユーザー。
	RoleProvider Role = "provider"
	// RoleGuest は未ログインの閲覧者。フォローや保存は行えない。
	RoleGuest Role = "guest"
)

// User はマーケットプレイスの利用者を表す。
// Followed と Messages はユーザードキュメント上のID配列として冗長に保持される。
// Followed の更新はフォローグラフマネージャーのみ、
// Messages の更新は会話マネージャーのみが行う。
type User struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Rating      float64   `json:"rating"`
	Followed    []string  `json:"followed"`
	Messages    []string  `json:"messages"`
	Services    []string  `json:"services"`
	Bookings    []string  `json:"bookings"`
	Posts       []string  `json:"posts"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsFollowing は指定プロバイダーをフォロー中かを返す。
func (u *User) IsFollowing(providerID string) bool {
	for _, id := range u.Followed {
		if id == providerID {
			return true
		}
	}
	return false
}

// CanFollow はフォロー操作が可能な役割かを返す。
// ゲストはフォローグラフに参加できない。
func (u *User) CanFollow() bool {
	return u.Role == RoleConsumer || u.Role == RoleProvider
}
