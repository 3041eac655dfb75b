// Package model はドメインモデルを定義する。
package model

import (
	"sort"
	"strings"
	"time"
)

// SenderRole はメッセージ送信者の役割を表す。
// 会話の参加者ペア（consumer, provider）のどちら側かを示す。
type SenderRole string

const (
	// SenderConsumer はコンシューマー側からの送信を示す。
	SenderConsumer SenderRole = "consumer"
	// SenderProvider はプロバイダー側からの送信を示す。
	SenderProvider SenderRole = "provider"
)

// Message は会話内の1件のメッセージを表す。
// SenderID は送信者の明示的なユーザーID。役割比較だけに頼る同一性判定は
// 役割変更時に破綻するため、IDを正として保持する。
type Message struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	SenderID   string     `json:"sender_id"`
	SenderRole SenderRole `json:"sender_role"`
	SentAt     time.Time  `json:"sent_at"`
}

// Conversation は（consumer, provider）の非順序ペアごとに一意な会話を表す。
// メッセージ列は追記専用で、会話自体は削除されない。
type Conversation struct {
	ID         string    `json:"id"`
	ConsumerID string    `json:"consumer_id"`
	ProviderID string    `json:"provider_id"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PairKey は非順序ペアから決定的な会話キーを生成する。
// 同じ2人からは引数の順序に関わらず常に同じキーが得られるため、
// ストア側の一意性制約と組み合わせて会話の重複作成を防ぐ。
func PairKey(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return "conv:" + strings.Join(ids, ":")
}

// HasParticipant は指定ユーザーが会話の参加者かを返す。
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ConsumerID == userID || c.ProviderID == userID
}

// RoleOf は参加者のユーザーIDから会話内での役割を返す。
// 参加者でない場合は空文字を返す。
func (c *Conversation) RoleOf(userID string) SenderRole {
	switch userID {
	case c.ConsumerID:
		return SenderConsumer
	case c.ProviderID:
		return SenderProvider
	}
	return ""
}

// IsOwnMessage は閲覧者のユーザーIDからメッセージの左右整列を判定する。
// SenderID が記録されていればそれを正とし、旧データ（SenderID空）のみ
// 役割比較にフォールバックする。
func (c *Conversation) IsOwnMessage(m Message, viewerID string) bool {
	if m.SenderID != "" {
		return m.SenderID == viewerID
	}
	switch m.SenderRole {
	case SenderConsumer:
		return c.ConsumerID == viewerID
	case SenderProvider:
		return c.ProviderID == viewerID
	}
	return false
}
