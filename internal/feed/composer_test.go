package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/ichiba/internal/follow"
	"github.com/hitoshi/ichiba/internal/identity"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/store"
)

// --- モック定義 ---

// mockFollowSource はFollowSourceのモック実装。
type mockFollowSource struct {
	followedProvidersFn func(ctx context.Context, consumerID string) ([]string, error)
}

func (m *mockFollowSource) FollowedProviders(ctx context.Context, consumerID string) ([]string, error) {
	if m.followedProvidersFn != nil {
		return m.followedProvidersFn(ctx, consumerID)
	}
	return nil, nil
}

// mockFeedMetrics はMetricsRecorderのモック実装。
type mockFeedMetrics struct {
	failures  int
	latencies []time.Duration
}

func (m *mockFeedMetrics) RecordFeedFetchFailure()           { m.failures++ }
func (m *mockFeedMetrics) RecordFeedLatency(d time.Duration) { m.latencies = append(m.latencies, d) }

// seedItems はMemoryStoreにテスト用アイテムを投入する。
func seedItems(t *testing.T, st store.Store, items ...model.ContentItem) {
	t.Helper()
	ctx := context.Background()
	for _, item := range items {
		if _, err := st.Create(ctx, store.CollectionPosts, item.ID, item); err != nil {
			t.Fatalf("failed to seed item %s: %v", item.ID, err)
		}
	}
}

// --- Catalog テスト ---

func TestComposer_Catalog_NoFilters_ReturnsAllInStoreOrder(t *testing.T) {
	st := store.NewMemoryStore()
	seedItems(t, st,
		model.ContentItem{ID: "i1", Category: "Beauty", ProviderID: "p1"},
		model.ContentItem{ID: "i2", Category: "Fitness", ProviderID: "p2"},
		model.ContentItem{ID: "i3", Category: "Beauty", ProviderID: "p3"},
	)

	c := NewComposer(st, &mockFollowSource{}, nil)

	items, err := c.Catalog(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Catalog returned error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	// ストアの走査順をそのまま保つこと
	for i, want := range []string{"i1", "i2", "i3"} {
		if items[i].ID != want {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, want)
		}
	}
}

func TestComposer_Catalog_CategoryFilter(t *testing.T) {
	st := store.NewMemoryStore()
	seedItems(t, st,
		model.ContentItem{ID: "i1", Category: "Beauty"},
		model.ContentItem{ID: "i2", Category: "Fitness"},
	)

	c := NewComposer(st, &mockFollowSource{}, nil)

	tests := []struct {
		name     string
		category string
		wantIDs  []string
	}{
		{"カテゴリ完全一致", "Beauty", []string{"i1"}},
		{"Allはフィルタなし", model.CategoryAll, []string{"i1", "i2"}},
		{"空はフィルタなし", "", []string{"i1", "i2"}},
		{"一致なしは空", "Cooking", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := c.Catalog(context.Background(), "", tt.category)
			if err != nil {
				t.Fatalf("Catalog returned error: %v", err)
			}
			if len(items) != len(tt.wantIDs) {
				t.Fatalf("len(items) = %d, want %d", len(items), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if items[i].ID != want {
					t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, want)
				}
			}
		})
	}
}

// 検索語はプロバイダー表示名とカテゴリへの大文字小文字を区別しない部分一致であること
func TestComposer_Catalog_QueryFilter(t *testing.T) {
	st := store.NewMemoryStore()
	seedItems(t, st,
		model.ContentItem{ID: "i1", Category: "Beauty", Provider: model.ProviderSnapshot{DisplayName: "ネイルサロン花"}},
		model.ContentItem{ID: "i2", Category: "Fitness", Provider: model.ProviderSnapshot{DisplayName: "パーソナルジムA"}},
	)

	c := NewComposer(st, &mockFollowSource{}, nil)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"表示名の部分一致", "ネイル", []string{"i1"}},
		{"カテゴリの部分一致（小文字）", "beauty", []string{"i1"}},
		{"空白のみの検索語は無視", "   ", []string{"i1", "i2"}},
		{"一致なしは空", "どこにもない", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := c.Catalog(context.Background(), tt.query, "")
			if err != nil {
				t.Fatalf("Catalog returned error: %v", err)
			}
			if len(items) != len(tt.wantIDs) {
				t.Fatalf("len(items) = %d, want %d: %v", len(items), len(tt.wantIDs), items)
			}
			for i, want := range tt.wantIDs {
				if items[i].ID != want {
					t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, want)
				}
			}
		})
	}
}

// 結果0件はエラーではなく空スライスであること
func TestComposer_Catalog_EmptyStore_ReturnsEmptyNotError(t *testing.T) {
	c := NewComposer(store.NewMemoryStore(), &mockFollowSource{}, nil)

	items, err := c.Catalog(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Catalog returned error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("items = %v, want empty non-nil slice", items)
	}
}

// --- Personalized テスト ---

func TestComposer_Personalized_OnlyFollowedProviders(t *testing.T) {
	st := store.NewMemoryStore()
	seedItems(t, st,
		model.ContentItem{ID: "i1", ProviderID: "p1"},
		model.ContentItem{ID: "i2", ProviderID: "p2"},
		model.ContentItem{ID: "i3", ProviderID: "p1"},
	)

	follows := &mockFollowSource{
		followedProvidersFn: func(ctx context.Context, consumerID string) ([]string, error) {
			return []string{"p1"}, nil
		},
	}

	c := NewComposer(st, follows, nil)

	items, err := c.Personalized(context.Background(), "consumer-1")
	if err != nil {
		t.Fatalf("Personalized returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	// フォローしていないプロバイダーのアイテムは含めないこと
	for _, item := range items {
		if item.ProviderID != "p1" {
			t.Errorf("item %s has provider %q, want p1 only", item.ID, item.ProviderID)
		}
	}
}

func TestComposer_Personalized_Guest_ReturnsEmptyView(t *testing.T) {
	c := NewComposer(store.NewMemoryStore(), &mockFollowSource{}, nil)

	items, err := c.Personalized(context.Background(), "")
	if err != nil {
		t.Fatalf("Personalized returned error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("items = %v, want empty non-nil slice", items)
	}
}

func TestComposer_Personalized_EmptyFollowSet_ReturnsEmptyView(t *testing.T) {
	st := store.NewMemoryStore()
	seedItems(t, st, model.ContentItem{ID: "i1", ProviderID: "p1"})

	c := NewComposer(st, &mockFollowSource{}, nil)

	items, err := c.Personalized(context.Background(), "consumer-1")
	if err != nil {
		t.Fatalf("Personalized returned error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %v, want empty", items)
	}
}

// フォロー集合の取得失敗は空結果と区別可能なエラーになること
func TestComposer_Personalized_FollowSourceError_ReturnsError(t *testing.T) {
	follows := &mockFollowSource{
		followedProvidersFn: func(ctx context.Context, consumerID string) ([]string, error) {
			return nil, errors.New("store down")
		},
	}
	metrics := &mockFeedMetrics{}

	c := NewComposer(store.NewMemoryStore(), follows, metrics)

	items, err := c.Personalized(context.Background(), "consumer-1")
	if err == nil {
		t.Fatal("Personalized should return error when follow source fails")
	}
	if items != nil {
		t.Errorf("items = %v, want nil on error", items)
	}
	if metrics.failures != 1 {
		t.Errorf("RecordFeedFetchFailure calls = %d, want 1", metrics.failures)
	}
}

func TestComposer_ListLatencyRecorded(t *testing.T) {
	st := store.NewMemoryStore()
	seedItems(t, st, model.ContentItem{ID: "i1"})
	metrics := &mockFeedMetrics{}

	c := NewComposer(st, &mockFollowSource{}, metrics)

	if _, err := c.Catalog(context.Background(), "", ""); err != nil {
		t.Fatalf("Catalog returned error: %v", err)
	}
	if len(metrics.latencies) != 1 {
		t.Errorf("RecordFeedLatency calls = %d, want 1", len(metrics.latencies))
	}
}

// フォロー→パーソナライズ→アンフォロー→空のシナリオを、
// 実際のフォローグラフと同一ストア上で通しで検証する。
func TestComposer_Personalized_FollowUnfollowScenario(t *testing.T) {
	st := store.NewMemoryStore()
	id := identity.NewStoreAdapter(st)
	ctx := context.Background()

	users := []*model.User{
		{ID: "consumer-1", Role: model.RoleConsumer},
		{ID: "provider-1", Role: model.RoleProvider},
		{ID: "provider-2", Role: model.RoleProvider},
	}
	for _, u := range users {
		if err := id.CreateUser(ctx, u); err != nil {
			t.Fatalf("failed to create test user %s: %v", u.ID, err)
		}
	}
	seedItems(t, st,
		model.ContentItem{ID: "i1", Category: "Beauty", ProviderID: "provider-1"},
		model.ContentItem{ID: "i2", Category: "Fitness", ProviderID: "provider-2"},
	)

	follows := follow.NewService(id, st, nil)
	c := NewComposer(st, follows, nil)

	// フォロー前は空ビュー
	items, err := c.Personalized(ctx, "consumer-1")
	if err != nil {
		t.Fatalf("Personalized returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("before follow: len(items) = %d, want 0", len(items))
	}

	// provider-1をフォローすると、そのプロバイダーのアイテムだけが見える
	if err := follows.Follow(ctx, "consumer-1", "provider-1"); err != nil {
		t.Fatalf("Follow returned error: %v", err)
	}
	items, err = c.Personalized(ctx, "consumer-1")
	if err != nil {
		t.Fatalf("Personalized returned error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "i1" {
		t.Fatalf("after follow: items = %+v, want [i1]", items)
	}

	// アンフォローすると再び空ビューに戻る
	if err := follows.Unfollow(ctx, "consumer-1", "provider-1"); err != nil {
		t.Fatalf("Unfollow returned error: %v", err)
	}
	items, err = c.Personalized(ctx, "consumer-1")
	if err != nil {
		t.Fatalf("Personalized returned error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("after unfollow: len(items) = %d, want 0", len(items))
	}
}
