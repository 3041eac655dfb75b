package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval は変更フィードのポーリング間隔の既定値。
const DefaultPollInterval = 2 * time.Second

// PostgresStore はPostgreSQLのjsonbカラムを使用したStore実装。
// 全コレクションを単一のdocumentsテーブル（主キー: collection, id）に格納する。
// 変更フィードはRevカウンタのポーリングで検出するクライアント駆動型。
type PostgresStore struct {
	db           *sql.DB
	pollInterval time.Duration
}

// NewPostgresStore はPostgresStoreを生成する。
// pollIntervalが0以下の場合はDefaultPollIntervalを使用する。
func NewPostgresStore(db *sql.DB, pollInterval time.Duration) *PostgresStore {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &PostgresStore{db: db, pollInterval: pollInterval}
}

// ListAll はコレクション内の全ドキュメントを格納順で返す。
func (s *PostgresStore) ListAll(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT collection, id, body, rev, created_at, updated_at
		 FROM documents WHERE collection = $1 ORDER BY created_at ASC, id ASC`,
		collection,
	)
	if err != nil {
		return nil, transientError("ドキュメント一覧の取得に失敗しました", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.Collection, &doc.ID, &doc.Body, &doc.Rev, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, transientError("ドキュメント行の読み取りに失敗しました", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, transientError("ドキュメント一覧の走査に失敗しました", err)
	}
	return docs, nil
}

// GetByID は指定IDのドキュメントを取得する。見つからない場合はnilを返す。
func (s *PostgresStore) GetByID(ctx context.Context, collection, id string) (*Document, error) {
	doc := &Document{}
	err := s.db.QueryRowContext(ctx,
		`SELECT collection, id, body, rev, created_at, updated_at
		 FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&doc.Collection, &doc.ID, &doc.Body, &doc.Rev, &doc.CreatedAt, &doc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, transientError("ドキュメントの取得に失敗しました", err)
	}
	return doc, nil
}

// Create はドキュメントを作成する。既存IDの場合は何も書き込まずfalseを返す。
// 主キー(collection, id)のON CONFLICT DO NOTHINGにより、
// 同時作成の競合はストア側で直列化され最大1行に収束する。
func (s *PostgresStore) Create(ctx context.Context, collection, id string, body any) (bool, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("ドキュメントのエンコードに失敗しました: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body, rev, created_at, updated_at)
		 VALUES ($1, $2, $3, 1, now(), now())
		 ON CONFLICT (collection, id) DO NOTHING`,
		collection, id, raw,
	)
	if err != nil {
		return false, transientError("ドキュメントの作成に失敗しました", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, transientError("作成結果の確認に失敗しました", err)
	}
	return affected == 1, nil
}

// Update はドキュメント本体を全置換し、Revを進める。
func (s *PostgresStore) Update(ctx context.Context, collection, id string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ドキュメントのエンコードに失敗しました: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET body = $3, rev = rev + 1, updated_at = now()
		 WHERE collection = $1 AND id = $2`,
		collection, id, raw,
	)
	if err != nil {
		return transientError("ドキュメントの更新に失敗しました", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return transientError("更新結果の確認に失敗しました", err)
	}
	if affected == 0 {
		return notFoundError(collection, id)
	}
	return nil
}

// AppendToArrayField は配列フィールドに値を集合和で追加する。
// WHERE句の包含チェックにより、同一値の並行追加でも重複は発生しない。
func (s *PostgresStore) AppendToArrayField(ctx context.Context, collection, id, field string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("値のエンコードに失敗しました: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET body = jsonb_set(body, ARRAY[$3],
		       COALESCE(body->$3, '[]'::jsonb) || jsonb_build_array($4::jsonb)),
		     rev = rev + 1, updated_at = now()
		 WHERE collection = $1 AND id = $2
		   AND NOT COALESCE(body->$3, '[]'::jsonb) @> jsonb_build_array($4::jsonb)`,
		collection, id, field, raw,
	)
	if err != nil {
		return transientError("配列フィールドへの追加に失敗しました", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return transientError("追加結果の確認に失敗しました", err)
	}
	if affected == 0 {
		// 既に含まれている（冪等に成功）か、ドキュメント自体が無いかを区別する
		doc, err := s.GetByID(ctx, collection, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return notFoundError(collection, id)
		}
	}
	return nil
}

// RemoveFromArrayField は配列フィールドから値を取り除く。
func (s *PostgresStore) RemoveFromArrayField(ctx context.Context, collection, id, field string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("値のエンコードに失敗しました: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET body = jsonb_set(body, ARRAY[$3], COALESCE(
		       (SELECT jsonb_agg(elem)
		        FROM jsonb_array_elements(COALESCE(body->$3, '[]'::jsonb)) AS elem
		        WHERE elem <> $4::jsonb),
		       '[]'::jsonb)),
		     rev = rev + 1, updated_at = now()
		 WHERE collection = $1 AND id = $2
		   AND COALESCE(body->$3, '[]'::jsonb) @> jsonb_build_array($4::jsonb)`,
		collection, id, field, raw,
	)
	if err != nil {
		return transientError("配列フィールドからの除去に失敗しました", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return transientError("除去結果の確認に失敗しました", err)
	}
	if affected == 0 {
		doc, err := s.GetByID(ctx, collection, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return notFoundError(collection, id)
		}
	}
	return nil
}

// Subscribe はドキュメントの変更フィードを購読する。
// PostgresStoreではRevカウンタをポーリングし、変化を検出したときに
// ドキュメント全体のスナップショットをコールバックへ配送する。
// 一時的な読み取り失敗はログに記録し、次のポーリングで再試行する。
func (s *PostgresStore) Subscribe(ctx context.Context, collection, id string, fn func(Document)) (Unsubscribe, error) {
	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	go func() {
		var lastRev int64

		// 初回スナップショット
		if doc, err := s.GetByID(pollCtx, collection, id); err == nil && doc != nil {
			lastRev = doc.Rev
			fn(*doc)
		} else if err != nil {
			slog.Warn("change feed initial read failed",
				slog.String("collection", collection),
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				doc, err := s.GetByID(pollCtx, collection, id)
				if err != nil {
					slog.Warn("change feed poll failed",
						slog.String("collection", collection),
						slog.String("id", id),
						slog.String("error", err.Error()),
					)
					continue
				}
				if doc == nil || doc.Rev == lastRev {
					continue
				}
				lastRev = doc.Rev
				fn(*doc)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(cancel)
	}, nil
}
