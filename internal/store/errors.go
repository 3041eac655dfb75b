package store

import (
	"fmt"

	"github.com/hitoshi/ichiba/internal/model"
)

// notFoundError はドキュメント未検出の型付きエラーを返す。
func notFoundError(collection, id string) error {
	return model.NewDocumentNotFoundError(collection, id)
}

// transientError はストア一時障害の型付きエラーにラップする。
// この分類の失敗を受けた呼び出し側は楽観的状態をロールバックする。
func transientError(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, model.NewStoreUnavailableError(err))
}
