// Package identity は外部アカウントストアへの薄いアダプタを提供する。
// アカウント作成時の資格情報検証は外部コラボレーターの責務であり、
// この層は不透明なユーザーIDをキーとするレコードの読み書きのみを行う。
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/store"
)

// Adapter はユーザーレコード操作のインターフェース。
type Adapter interface {
	// GetUser は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	GetUser(ctx context.Context, id string) (*model.User, error)

	// UpdateUser はユーザーレコードの一部フィールドのみを更新する。
	// fieldsに含まれないフィールドは変更されない。
	// ユーザーが存在しない場合はNotFoundを返す。
	UpdateUser(ctx context.Context, id string, fields map[string]any) error

	// CreateUser はユーザーレコードを作成する。
	// サインアップ時に1回だけ呼ばれ、レコードは以後ハード削除されない。
	CreateUser(ctx context.Context, user *model.User) error
}

// StoreAdapter はdocument store上のusersコレクションを使うAdapter実装。
type StoreAdapter struct {
	store store.Store
}

// NewStoreAdapter はStoreAdapterを生成する。
func NewStoreAdapter(s store.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetUser は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (a *StoreAdapter) GetUser(ctx context.Context, id string) (*model.User, error) {
	doc, err := a.store.GetByID(ctx, store.CollectionUsers, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	user := &model.User{}
	if err := doc.Decode(user); err != nil {
		return nil, fmt.Errorf("ユーザーレコードのデコードに失敗しました: %w", err)
	}
	return user, nil
}

// UpdateUser はユーザーレコードの一部フィールドのみを更新する。
// 読み取り・マージ・全置換で実現する。配列の関係フィールド
// （followed, messages等）は集合和が必要なため、この経路ではなく
// ストアのAppendToArrayFieldを使うこと。
func (a *StoreAdapter) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	doc, err := a.store.GetByID(ctx, store.CollectionUsers, id)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if doc == nil {
		return model.NewUserNotFoundError(id)
	}

	var body map[string]json.RawMessage
	if err := doc.Decode(&body); err != nil {
		return fmt.Errorf("ユーザーレコードのデコードに失敗しました: %w", err)
	}

	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("フィールド %s のエンコードに失敗しました: %w", k, err)
		}
		body[k] = raw
	}
	raw, err := json.Marshal(time.Now())
	if err != nil {
		return fmt.Errorf("更新時刻のエンコードに失敗しました: %w", err)
	}
	body["updated_at"] = raw

	if err := a.store.Update(ctx, store.CollectionUsers, id, body); err != nil {
		return fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	return nil
}

// CreateUser はユーザーレコードを作成する。
func (a *StoreAdapter) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	created, err := a.store.Create(ctx, store.CollectionUsers, user.ID, user)
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	if !created {
		return fmt.Errorf("ユーザーは既に存在します: %s", user.ID)
	}
	return nil
}
