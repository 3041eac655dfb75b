package follow

import (
	"sort"
	"sync"
)

// EntryState はミラー内エントリの状態を表す。
type EntryState string

const (
	// StatePending はリモート書き込みの完了待ちの楽観的状態。
	StatePending EntryState = "pending"
	// StateConfirmed はリモートで確定済みの状態。
	StateConfirmed EntryState = "confirmed"
	// StateRolledBack はリモート書き込み失敗により巻き戻された状態。
	// UIはこの状態を見てトグル表示を元に戻す。
	StateRolledBack EntryState = "rolled_back"
)

// mirrorEntry はプロバイダー1件分のミラー状態。
// member が楽観的な現在のフォロー有無、prev が巻き戻し先の値。
type mirrorEntry struct {
	member bool
	prev   bool
	state  EntryState
}

// Mirror はフォロー一覧のクライアントローカルな楽観的ミラー。
// リモート書き込みの完了前に先行更新され、応答確認（ack）ごとに
// 単一のReconcile関数で収束させる。失敗時は巻き戻すのみで自動リトライはしない。
// リモートの正式な読み取り結果はResetToで反映する。
type Mirror struct {
	mu      sync.Mutex
	entries map[string]*mirrorEntry
}

// NewMirror は確定済みフォロー一覧からMirrorを生成する。
func NewMirror(confirmed []string) *Mirror {
	m := &Mirror{entries: make(map[string]*mirrorEntry)}
	for _, id := range confirmed {
		m.entries[id] = &mirrorEntry{member: true, prev: true, state: StateConfirmed}
	}
	return m
}

// BeginFollow はフォローを楽観的に先行反映する。
// 対応するリモート書き込みの結果をReconcileで通知すること。
func (m *Mirror) BeginFollow(providerID string) {
	m.begin(providerID, true)
}

// BeginUnfollow はアンフォローを楽観的に先行反映する。
func (m *Mirror) BeginUnfollow(providerID string) {
	m.begin(providerID, false)
}

func (m *Mirror) begin(providerID string, member bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[providerID]
	if !ok {
		entry = &mirrorEntry{}
		m.entries[providerID] = entry
	}
	entry.prev = entry.member
	entry.member = member
	entry.state = StatePending
}

// Reconcile はリモート書き込みの応答確認を反映する。
// ok の場合は楽観的な値を確定し、失敗の場合は先行反映前の値に巻き戻す。
// 全ての応答経路がこの1関数を通る。
func (m *Mirror) Reconcile(providerID string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[providerID]
	if !exists || entry.state != StatePending {
		return
	}

	if ok {
		entry.state = StateConfirmed
		if !entry.member {
			delete(m.entries, providerID)
		}
		return
	}

	entry.member = entry.prev
	entry.state = StateRolledBack
	if !entry.member {
		// 巻き戻した結果フォローしていないなら保持する意味はない
		delete(m.entries, providerID)
	}
}

// ResetTo はリモートの正式な読み取り結果でミラー全体を置き換える。
// 完了待ちの楽観的状態も破棄される。
func (m *Mirror) ResetTo(confirmed []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*mirrorEntry, len(confirmed))
	for _, id := range confirmed {
		m.entries[id] = &mirrorEntry{member: true, prev: true, state: StateConfirmed}
	}
}

// Contains は楽観的ビューでプロバイダーをフォロー中かを返す。
func (m *Mirror) Contains(providerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[providerID]
	return ok && entry.member
}

// State はプロバイダーのエントリ状態を返す。
// エントリが存在しない場合は確定済み・非フォローとしてStateConfirmedを返す。
func (m *Mirror) State(providerID string) EntryState {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[providerID]
	if !ok {
		return StateConfirmed
	}
	return entry.state
}

// Snapshot は楽観的ビューのフォロー先ID一覧をソート済みで返す。
func (m *Mirror) Snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.entries))
	for id, entry := range m.entries {
		if entry.member {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
