// Package chat は2者間会話の作成・重複排除・追記・同期を管理する。
//
// 会話は（consumer, provider）の非順序ペアごとに最大1件で、決定的な
// ペアキーをドキュメントIDに使いストアの一意性制約で重複作成を防ぐ。
// 両端から同時に初回コンタクトが起きても、格納される会話は1件に収束する。
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ichiba/internal/identity"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/store"
)

// messagesField は会話ドキュメント上のメッセージ配列のフィールド名。
const messagesField = "messages"

// userMessagesField はユーザードキュメント上の参加会話ID配列のフィールド名。
const userMessagesField = "messages"

// ContentSanitizer はメッセージ本文のサニタイズインターフェース。
// security.ContentSanitizerServiceの部分集合として定義する。
type ContentSanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder は会話操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordConversationCreated()
	RecordMessageSent()
	AddActiveChatSubscriptions(delta int)
}

// Manager は会話ライフサイクルのサービス層。
type Manager struct {
	store     store.Store
	identity  identity.Adapter
	sanitizer ContentSanitizer
	metrics   MetricsRecorder
}

// NewManager はManagerの新しいインスタンスを生成する。
// sanitizer、metricsはnil可。
func NewManager(st store.Store, id identity.Adapter, sanitizer ContentSanitizer, metrics MetricsRecorder) *Manager {
	return &Manager{
		store:     st,
		identity:  id,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// CreateOrGet はペアの会話を取得し、存在しなければ作成する。
//
// 会話IDはペアキーそのものなので、逐次・並行を問わず同じペアからの
// 呼び出しは常に同じIDを返す。新規作成時は両参加者のユーザーレコードに
// 会話IDを集合和で登録する。
func (m *Manager) CreateOrGet(ctx context.Context, consumerID, providerID string) (*model.Conversation, error) {
	if consumerID == "" || providerID == "" {
		return nil, model.NewInvalidParticipantsError("参加者IDが空です")
	}
	if consumerID == providerID {
		return nil, model.NewInvalidParticipantsError("自分自身との会話は作成できません")
	}

	consumer, err := m.identity.GetUser(ctx, consumerID)
	if err != nil {
		return nil, fmt.Errorf("コンシューマー側ユーザーの取得に失敗しました: %w", err)
	}
	if consumer == nil {
		return nil, model.NewUserNotFoundError(consumerID)
	}
	provider, err := m.identity.GetUser(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("プロバイダー側ユーザーの取得に失敗しました: %w", err)
	}
	if provider == nil {
		return nil, model.NewUserNotFoundError(providerID)
	}
	if provider.Role != model.RoleProvider {
		return nil, model.NewInvalidRoleError(string(provider.Role))
	}
	if consumer.Role == model.RoleGuest {
		return nil, model.NewInvalidRoleError(string(consumer.Role))
	}

	id := model.PairKey(consumerID, providerID)
	now := time.Now()
	conv := &model.Conversation{
		ID:         id,
		ConsumerID: consumerID,
		ProviderID: providerID,
		Messages:   []model.Message{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := m.store.Create(ctx, store.CollectionConversations, id, conv)
	if err != nil {
		return nil, fmt.Errorf("会話の作成に失敗しました: %w", err)
	}

	if !created {
		// 既存の会話（もう一方の端が先に作成した場合を含む）を返す
		return m.Get(ctx, id)
	}

	// 両参加者のレコードに会話IDを登録する（集合和なので再実行しても重複しない）
	if err := m.store.AppendToArrayField(ctx, store.CollectionUsers, consumerID, userMessagesField, id); err != nil {
		return nil, fmt.Errorf("コンシューマー側への会話登録に失敗しました: %w", err)
	}
	if err := m.store.AppendToArrayField(ctx, store.CollectionUsers, providerID, userMessagesField, id); err != nil {
		return nil, fmt.Errorf("プロバイダー側への会話登録に失敗しました: %w", err)
	}

	if m.metrics != nil {
		m.metrics.RecordConversationCreated()
	}
	return conv, nil
}

// Get は指定IDの会話を取得する。見つからない場合はNotFoundを返す。
func (m *Manager) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	doc, err := m.store.GetByID(ctx, store.CollectionConversations, conversationID)
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	if doc == nil {
		return nil, model.NewConversationNotFoundError(conversationID)
	}

	conv := &model.Conversation{}
	if err := doc.Decode(conv); err != nil {
		return nil, fmt.Errorf("会話のデコードに失敗しました: %w", err)
	}
	// ドキュメントレベルの更新時刻を会話タイムスタンプの正とする
	conv.UpdatedAt = doc.UpdatedAt
	return conv, nil
}

// AppendMessage は会話にメッセージを追記する。会話に対して許される唯一の
// ミューテーションで、編集・削除・リダクションの経路は存在しない。
//
// 本文はトリム後に空ならリモート呼び出しの前にValidationFailureで弾く。
// タイムスタンプはサーバー側（この層）で割り当てる。
func (m *Manager) AppendMessage(ctx context.Context, conversationID, senderID, content string) (*model.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, model.NewEmptyMessageError()
	}

	conv, err := m.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, model.NewPermissionDeniedError("会話の参加者ではありません")
	}

	if m.sanitizer != nil {
		trimmed = m.sanitizer.Sanitize(trimmed)
	}

	// 送信者IDから役割を導出するため、senderRoleが実際の送信側と
	// 食い違うことは構造上起こらない
	msg := &model.Message{
		ID:         uuid.NewString(),
		Content:    trimmed,
		SenderID:   senderID,
		SenderRole: conv.RoleOf(senderID),
		SentAt:     time.Now(),
	}

	if err := m.store.AppendToArrayField(ctx, store.CollectionConversations, conversationID, messagesField, msg); err != nil {
		return nil, fmt.Errorf("メッセージの追記に失敗しました: %w", err)
	}

	if m.metrics != nil {
		m.metrics.RecordMessageSent()
	}
	return msg, nil
}

// Subscribe は会話のメッセージ一覧スナップショットを配送するチャネルを返す。
//
// ストアの変更フィードで会話に変更が観測されるたびに、その時点の
// メッセージ全量がチャネルに流れる。消費が追いつかない場合は古い
// スナップショットを破棄して最新のみを保持する（全量スナップショット
// なので中間状態の欠落は情報の欠落にならない）。
//
// 解除は返されたキャンセル関数のみで行い、呼び出し側がUIライフサイクルに
// 合わせて必ず呼ぶこと。キャンセル関数はチャネルを決定的にクローズする。
func (m *Manager) Subscribe(ctx context.Context, conversationID string) (<-chan []model.Message, func(), error) {
	// 会話の存在確認（購読前のNotFound検出）
	if _, err := m.Get(ctx, conversationID); err != nil {
		return nil, nil, err
	}

	ch := make(chan []model.Message, 1)
	var mu sync.Mutex
	closed := false

	deliver := func(doc store.Document) {
		conv := &model.Conversation{}
		if err := doc.Decode(conv); err != nil {
			return
		}
		snapshot := conv.Messages

		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		// 最新スナップショットのみ保持する
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}

	unsubscribe, err := m.store.Subscribe(ctx, store.CollectionConversations, conversationID, deliver)
	if err != nil {
		return nil, nil, fmt.Errorf("変更フィードの購読に失敗しました: %w", err)
	}

	if m.metrics != nil {
		m.metrics.AddActiveChatSubscriptions(1)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
			if m.metrics != nil {
				m.metrics.AddActiveChatSubscriptions(-1)
			}
		})
	}
	return ch, cancel, nil
}
