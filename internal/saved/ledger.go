// Package saved はブックマーク済みアイテムIDの台帳を提供する。
//
// コア実装はセッション単位のオンメモリ集合で、リモートストアへは永続化しない。
// セッションをまたぐ永続化は外部の耐久キーバリューストレージの責務であり、
// RedisLedgerがその役割のアダプタとなる。
package saved

import (
	"context"
	"sort"
	"sync"
)

// Ledger は保存済みアイテム台帳のインターフェース。
type Ledger interface {
	// Toggle はアイテムの保存状態を反転し、反転後の状態を返す。
	Toggle(ctx context.Context, userID, itemID string) (bool, error)

	// Contains はアイテムが保存済みかを返す。
	Contains(ctx context.Context, userID, itemID string) (bool, error)

	// List はユーザーの保存済みアイテムID一覧をソート済みで返す。
	List(ctx context.Context, userID string) ([]string, error)
}

// MemoryLedger はオンメモリのLedger実装。
// プロセス終了とともに内容は消える（セッション単位の保持のみ）。
type MemoryLedger struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

// NewMemoryLedger はMemoryLedgerを生成する。
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{sets: make(map[string]map[string]struct{})}
}

// Toggle はアイテムの保存状態を反転し、反転後の状態を返す。
func (l *MemoryLedger) Toggle(ctx context.Context, userID, itemID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	set, ok := l.sets[userID]
	if !ok {
		set = make(map[string]struct{})
		l.sets[userID] = set
	}

	if _, saved := set[itemID]; saved {
		delete(set, itemID)
		return false, nil
	}
	set[itemID] = struct{}{}
	return true, nil
}

// Contains はアイテムが保存済みかを返す。
func (l *MemoryLedger) Contains(ctx context.Context, userID, itemID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, saved := l.sets[userID][itemID]
	return saved, nil
}

// List はユーザーの保存済みアイテムID一覧をソート済みで返す。
func (l *MemoryLedger) List(ctx context.Context, userID string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	set := l.sets[userID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
