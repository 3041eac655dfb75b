package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore はオンメモリのStore実装。
// テストおよびローカル開発用で、プロセス終了とともに内容は消える。
// 変更通知はミューテーションのコミット順に同期的に配送される。
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]*Document
	order       map[string][]string

	notifyMu sync.Mutex
	subs     map[int]*memorySub
	nextSub  int
}

type memorySub struct {
	collection string
	id         string
	fn         func(Document)
	closed     bool
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*Document),
		order:       make(map[string][]string),
		subs:        make(map[int]*memorySub),
	}
}

// ListAll はコレクション内の全ドキュメントを格納順で返す。
func (s *MemoryStore) ListAll(ctx context.Context, collection string) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.order[collection]
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.collections[collection][id]; ok {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

// GetByID は指定IDのドキュメントを取得する。見つからない場合はnilを返す。
func (s *MemoryStore) GetByID(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

// Create はドキュメントを作成する。既存IDの場合は何も書き込まずfalseを返す。
func (s *MemoryStore) Create(ctx context.Context, collection, id string, body any) (bool, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("ドキュメントのエンコードに失敗しました: %w", err)
	}

	s.mu.Lock()
	if _, ok := s.collections[collection][id]; ok {
		s.mu.Unlock()
		return false, nil
	}
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]*Document)
	}
	now := time.Now()
	doc := &Document{
		Collection: collection,
		ID:         id,
		Body:       raw,
		Rev:        1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.collections[collection][id] = doc
	s.order[collection] = append(s.order[collection], id)
	snapshot := *doc
	s.mu.Unlock()

	s.notify(snapshot)
	return true, nil
}

// Update はドキュメント本体を全置換し、Revを進める。
func (s *MemoryStore) Update(ctx context.Context, collection, id string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ドキュメントのエンコードに失敗しました: %w", err)
	}

	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return newNotFound(collection, id)
	}
	doc.Body = raw
	doc.Rev++
	doc.UpdatedAt = time.Now()
	snapshot := *doc
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// AppendToArrayField は配列フィールドに値を集合和で追加する。
func (s *MemoryStore) AppendToArrayField(ctx context.Context, collection, id, field string, value any) error {
	return s.mutateArrayField(collection, id, field, value, true)
}

// RemoveFromArrayField は配列フィールドから値を取り除く。
func (s *MemoryStore) RemoveFromArrayField(ctx context.Context, collection, id, field string, value any) error {
	return s.mutateArrayField(collection, id, field, value, false)
}

// mutateArrayField は配列フィールドへの集合和追加または除去を行う。
// 値の同一性はJSON表現の一致で判定する。
func (s *MemoryStore) mutateArrayField(collection, id, field string, value any, add bool) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("値のエンコードに失敗しました: %w", err)
	}

	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return newNotFound(collection, id)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(doc.Body, &body); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("ドキュメント本体のデコードに失敗しました: %w", err)
	}

	var arr []json.RawMessage
	if raw, ok := body[field]; ok && len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &arr); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("配列フィールド %s のデコードに失敗しました: %w", field, err)
		}
	}

	changed := false
	if add {
		exists := false
		for _, e := range arr {
			if string(e) == string(encoded) {
				exists = true
				break
			}
		}
		if !exists {
			arr = append(arr, json.RawMessage(encoded))
			changed = true
		}
	} else {
		kept := arr[:0]
		for _, e := range arr {
			if string(e) == string(encoded) {
				changed = true
				continue
			}
			kept = append(kept, e)
		}
		arr = kept
	}

	if !changed {
		s.mu.Unlock()
		return nil
	}

	newArr, err := json.Marshal(arr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("配列フィールド %s のエンコードに失敗しました: %w", field, err)
	}
	body[field] = newArr

	newBody, err := json.Marshal(body)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("ドキュメント本体のエンコードに失敗しました: %w", err)
	}
	doc.Body = newBody
	doc.Rev++
	doc.UpdatedAt = time.Now()
	snapshot := *doc
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Subscribe はドキュメントの変更フィードを購読する。
// MemoryStoreでは変更のたびに同期的にコールバックが呼ばれる。
// 登録時にドキュメントが存在すれば初回スナップショットを即時配送する。
func (s *MemoryStore) Subscribe(ctx context.Context, collection, id string, fn func(Document)) (Unsubscribe, error) {
	s.notifyMu.Lock()
	subID := s.nextSub
	s.nextSub++
	sub := &memorySub{collection: collection, id: id, fn: fn}
	s.subs[subID] = sub

	// 初回スナップショット。登録とコミット順通知の間で取りこぼしが出ないよう、
	// notifyMuを保持したまま配送する。
	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	var snapshot Document
	if ok {
		snapshot = *doc
	}
	s.mu.Unlock()
	if ok {
		fn(snapshot)
	}
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			sub.closed = true
			delete(s.subs, subID)
			s.notifyMu.Unlock()
		})
	}, nil
}

// notify は対象ドキュメントの購読者へスナップショットを配送する。
// notifyMuで直列化することで、購読者はコミット順の通知を観測する。
func (s *MemoryStore) notify(doc Document) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for _, sub := range s.subs {
		if sub.closed || sub.collection != doc.Collection || sub.id != doc.ID {
			continue
		}
		sub.fn(doc)
	}
}

func newNotFound(collection, id string) error {
	return fmt.Errorf("ドキュメントの更新に失敗しました: %w", notFoundError(collection, id))
}
