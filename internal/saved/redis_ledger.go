package saved

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/hitoshi/ichiba/internal/model"
)

// RedisLedger はRedisをバックエンドとするLedger実装。
// 保存状態をセッションをまたいで保持したい場合に使用する。
// コア設計上は外部コラボレーター（耐久キーバリューストレージ）の位置づけ。
type RedisLedger struct {
	client *redis.Client
}

// NewRedisLedger はRedisLedgerを生成する。
// addrは "host:port" 形式のRedisアドレスを指定する。
func NewRedisLedger(addr string) *RedisLedger {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	return &RedisLedger{client: client}
}

// savedKey はユーザーごとの保存済み集合のRedisキーを返す。
func savedKey(userID string) string {
	return "saved:" + userID
}

// Toggle はアイテムの保存状態を反転し、反転後の状態を返す。
// SADDの戻り値で追加済みかを判定するため、確認と反転の間に競合窓がない。
func (l *RedisLedger) Toggle(ctx context.Context, userID, itemID string) (bool, error) {
	added, err := l.client.SAdd(ctx, savedKey(userID), itemID).Result()
	if err != nil {
		return false, fmt.Errorf("保存状態の反転に失敗しました: %w", model.NewStoreUnavailableError(err))
	}
	if added == 1 {
		return true, nil
	}

	// 既に保存済みだったので取り除く
	if err := l.client.SRem(ctx, savedKey(userID), itemID).Err(); err != nil {
		return false, fmt.Errorf("保存状態の解除に失敗しました: %w", model.NewStoreUnavailableError(err))
	}
	return false, nil
}

// Contains はアイテムが保存済みかを返す。
func (l *RedisLedger) Contains(ctx context.Context, userID, itemID string) (bool, error) {
	saved, err := l.client.SIsMember(ctx, savedKey(userID), itemID).Result()
	if err != nil {
		return false, fmt.Errorf("保存状態の確認に失敗しました: %w", model.NewStoreUnavailableError(err))
	}
	return saved, nil
}

// List はユーザーの保存済みアイテムID一覧をソート済みで返す。
func (l *RedisLedger) List(ctx context.Context, userID string) ([]string, error) {
	ids, err := l.client.SMembers(ctx, savedKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("保存済み一覧の取得に失敗しました: %w", model.NewStoreUnavailableError(err))
	}
	sort.Strings(ids)
	return ids, nil
}

// Close はRedis接続を閉じる。
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
