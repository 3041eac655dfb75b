// Package store は汎用ドキュメントストアのインターフェースを定義する。
//
// リモートの永続ストアが唯一の正であり、上位層が持つ楽観的ミラーは
// 次の正式な読み取りでこの層の値に収束する。配列フィールドへの追加は
// リスト追記ではなく集合和（既に含まれる値の重複追加を許さない）で、
// 同一値の並行追加に対して安全であることを実装が保証する。
package store

import (
	"context"
	"encoding/json"
	"time"
)

// Document はストアに保存される1件のドキュメントを表す。
// Rev はドキュメントの更新ごとに単調増加し、変更フィードの検出に使われる。
type Document struct {
	Collection string
	ID         string
	Body       json.RawMessage
	Rev        int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Decode はドキュメント本体を指定の構造体にデコードする。
func (d *Document) Decode(v any) error {
	return json.Unmarshal(d.Body, v)
}

// Unsubscribe は変更フィードの購読を解除する。
// 解除後に新たな通知は開始されない（実行中のコールバック1回分は完了しうる）。
// 複数回呼んでも安全。
type Unsubscribe func()

// Store は汎用ドキュメントストアの永続化インターフェース。
type Store interface {
	// ListAll はコレクション内の全ドキュメントを格納順で返す。
	ListAll(ctx context.Context, collection string) ([]Document, error)

	// GetByID は指定IDのドキュメントを取得する。見つからない場合はnilを返す。
	GetByID(ctx context.Context, collection, id string) (*Document, error)

	// Create はドキュメントを作成する。
	// 同一IDのドキュメントが既に存在する場合は何も書き込まず false を返す。
	// この一意性保証が check-then-create 競合の防止線になる。
	Create(ctx context.Context, collection, id string, body any) (bool, error)

	// Update はドキュメント本体を全置換し、Revを進める。
	// ドキュメントが存在しない場合はNotFoundを返す。
	Update(ctx context.Context, collection, id string, body any) error

	// AppendToArrayField は配列フィールドに値を集合和で追加する。
	// 既に同じ値が含まれている場合は何もせず成功する（冪等）。
	// ドキュメントが存在しない場合はNotFoundを返す。
	AppendToArrayField(ctx context.Context, collection, id, field string, value any) error

	// RemoveFromArrayField は配列フィールドから値を取り除く。
	// 値が含まれていない場合は何もせず成功する（冪等）。
	// ドキュメントが存在しない場合はNotFoundを返す。
	RemoveFromArrayField(ctx context.Context, collection, id, field string, value any) error

	// Subscribe はドキュメントの変更フィードを購読する。
	// 購読直後にドキュメントが存在すれば現在のスナップショットが1回配送され、
	// 以降は変更が観測されるたびにコミット順でドキュメント全体のスナップショットが
	// コールバックに渡される。同一Revのスナップショットが重複して配送されることが
	// あるため、コールバックは冪等でなければならない。
	// 解除は返されたUnsubscribeの呼び出しのみ。タイムアウトによる自動解除はない。
	Subscribe(ctx context.Context, collection, id string, fn func(Document)) (Unsubscribe, error)
}

// 既定のコレクション名。
const (
	CollectionUsers         = "users"
	CollectionPosts         = "posts"
	CollectionConversations = "conversations"
	CollectionServices      = "services"
	CollectionBookings      = "bookings"
)
