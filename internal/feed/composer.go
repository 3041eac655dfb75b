// Package feed はコンテンツアイテム集合から読み取り専用のビューを導出する。
//
// カタログビューとパーソナライズドビューはいずれも
// （全アイテム集合、現在のフォロー集合、検索・カテゴリフィルタ）の純関数で、
// 元のアイテム集合を変更しない。ランキングやページネーションは行わず、
// ストアの走査順をそのまま保つ。
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/store"
)

// FollowSource は閲覧者の現在のフォロー集合の取得インターフェース。
// follow.Serviceの部分集合として定義する。
type FollowSource interface {
	FollowedProviders(ctx context.Context, consumerID string) ([]string, error)
}

// MetricsRecorder はフィード導出のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordFeedFetchFailure()
	RecordFeedLatency(d time.Duration)
}

// Composer はフィード導出のサービス層。
type Composer struct {
	store   store.Store
	follows FollowSource
	metrics MetricsRecorder
}

// NewComposer はComposerの新しいインスタンスを生成する。
// metricsはnil可。
func NewComposer(st store.Store, follows FollowSource, metrics MetricsRecorder) *Composer {
	return &Composer{
		store:   st,
		follows: follows,
		metrics: metrics,
	}
}

// Catalog は全アイテムに検索・カテゴリフィルタを適用したカタログビューを返す。
//
// queryはプロバイダー表示名またはカテゴリに対する大文字小文字を区別しない
// 部分一致。categoryは完全一致で、"All"または空の場合はフィルタしない。
// 結果が0件でもエラーではなく空スライスを返す。取得失敗は空結果と
// 区別可能なエラーとして返す。
func (c *Composer) Catalog(ctx context.Context, query, category string) ([]model.ContentItem, error) {
	items, err := c.listItems(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	filterCategory := category != "" && category != model.CategoryAll

	results := make([]model.ContentItem, 0, len(items))
	for _, item := range items {
		if q != "" {
			name := strings.ToLower(item.Provider.DisplayName)
			cat := strings.ToLower(item.Category)
			if !strings.Contains(name, q) && !strings.Contains(cat, q) {
				continue
			}
		}
		if filterCategory && item.Category != category {
			continue
		}
		results = append(results, item)
	}
	return results, nil
}

// Personalized は閲覧者のフォロー先プロバイダーのアイテムのみを返す。
//
// ゲスト（viewerID空）またはフォロー集合が空の場合は空ビューを返す。
// フォローしていないプロバイダーのアイテムは評価が高くても含めない。
// フィルタはフォローグラフによる厳密な絞り込みであり、レコメンドではない。
func (c *Composer) Personalized(ctx context.Context, viewerID string) ([]model.ContentItem, error) {
	if viewerID == "" {
		return []model.ContentItem{}, nil
	}

	followed, err := c.follows.FollowedProviders(ctx, viewerID)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordFeedFetchFailure()
		}
		return nil, fmt.Errorf("フォロー集合の取得に失敗しました: %w", err)
	}
	if len(followed) == 0 {
		return []model.ContentItem{}, nil
	}

	followSet := make(map[string]struct{}, len(followed))
	for _, id := range followed {
		followSet[id] = struct{}{}
	}

	items, err := c.listItems(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]model.ContentItem, 0, len(items))
	for _, item := range items {
		if _, ok := followSet[item.ProviderID]; ok {
			results = append(results, item)
		}
	}
	return results, nil
}

// listItems は全コンテンツアイテムを格納順で取得する。
// 呼び出しごとにコレクション全体を読む（ページネーションなし）。
func (c *Composer) listItems(ctx context.Context) ([]model.ContentItem, error) {
	start := time.Now()

	docs, err := c.store.ListAll(ctx, store.CollectionPosts)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordFeedFetchFailure()
		}
		return nil, fmt.Errorf("アイテム一覧の取得に失敗しました: %w", err)
	}

	items := make([]model.ContentItem, 0, len(docs))
	for _, doc := range docs {
		var item model.ContentItem
		if err := doc.Decode(&item); err != nil {
			return nil, fmt.Errorf("アイテムのデコードに失敗しました (%s): %w", doc.ID, err)
		}
		items = append(items, item)
	}

	if c.metrics != nil {
		c.metrics.RecordFeedLatency(time.Since(start))
	}
	return items, nil
}
