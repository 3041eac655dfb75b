// Package follow はコンシューマー→プロバイダーのフォローグラフを管理する。
package follow

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/ichiba/internal/identity"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/store"
)

// followedField はユーザードキュメント上のフォロー先ID配列のフィールド名。
const followedField = "followed"

// MetricsRecorder はフォロー操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordFollow()
	RecordUnfollow()
}

// Service はフォローグラフのサービス層。
// フォロー・アンフォローは冪等で、相互関係の作成やプロバイダーへの通知は行わない。
type Service struct {
	identity identity.Adapter
	store    store.Store
	metrics  MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnil可。
func NewService(id identity.Adapter, st store.Store, metrics MetricsRecorder) *Service {
	return &Service{
		identity: id,
		store:    st,
		metrics:  metrics,
	}
}

// Follow はコンシューマーのフォロー先にプロバイダーを追加する。
// 既にフォロー中なら何もせず成功する（冪等）。
// コンシューマーが解決できない場合はNotFoundを返す。
func (s *Service) Follow(ctx context.Context, consumerID, providerID string) error {
	if strings.TrimSpace(providerID) == "" {
		return model.NewMissingFollowTargetError()
	}

	user, err := s.identity.GetUser(ctx, consumerID)
	if err != nil {
		return fmt.Errorf("フォロー元ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(consumerID)
	}
	if !user.CanFollow() {
		return model.NewInvalidRoleError(string(user.Role))
	}

	// 集合和セマンティクスにより二重フォローは重複なしで黙って成功する
	if err := s.store.AppendToArrayField(ctx, store.CollectionUsers, consumerID, followedField, providerID); err != nil {
		return fmt.Errorf("フォロー先の追加に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordFollow()
	}
	return nil
}

// Unfollow はコンシューマーのフォロー先からプロバイダーを取り除く。
// フォローしていない場合も何もせず成功する（冪等）。
func (s *Service) Unfollow(ctx context.Context, consumerID, providerID string) error {
	if strings.TrimSpace(providerID) == "" {
		return model.NewMissingFollowTargetError()
	}

	user, err := s.identity.GetUser(ctx, consumerID)
	if err != nil {
		return fmt.Errorf("フォロー元ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(consumerID)
	}

	if err := s.store.RemoveFromArrayField(ctx, store.CollectionUsers, consumerID, followedField, providerID); err != nil {
		return fmt.Errorf("フォロー先の除去に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordUnfollow()
	}
	return nil
}

// FollowedProviders はコンシューマーの現在のフォロー先ID一覧を返す。
// リモートストアを正とする正式な読み取りで、ローカルミラーの収束先となる。
// ユーザーが存在しない（ゲスト等）場合は空集合を返す。
func (s *Service) FollowedProviders(ctx context.Context, consumerID string) ([]string, error) {
	if consumerID == "" {
		return nil, nil
	}

	user, err := s.identity.GetUser(ctx, consumerID)
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, nil
	}
	return user.Followed, nil
}
