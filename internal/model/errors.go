// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: not_found, validation, transient, permission
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ。失敗分類（NotFound / ValidationFailure /
// TransientStoreFailure / PermissionDenied）に1対1で対応する。
const (
	CategoryNotFound   = "not_found"
	CategoryValidation = "validation"
	CategoryTransient  = "transient"
	CategoryPermission = "permission"
)

// 定義済みエラーコード
const (
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeConversationNotFound = "CONVERSATION_NOT_FOUND"
	ErrCodeItemNotFound         = "ITEM_NOT_FOUND"
	ErrCodeDocumentNotFound     = "DOCUMENT_NOT_FOUND"
	ErrCodeEmptyMessage         = "EMPTY_MESSAGE"
	ErrCodeInvalidParticipants  = "INVALID_PARTICIPANTS"
	ErrCodeMissingFollowTarget  = "MISSING_FOLLOW_TARGET"
	ErrCodeInvalidImageURL      = "INVALID_IMAGE_URL"
	ErrCodeMissingField         = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidRole          = "INVALID_ROLE"
	ErrCodeStoreUnavailable     = "STORE_UNAVAILABLE"
	ErrCodePermissionDenied     = "PERMISSION_DENIED"
)

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: CategoryNotFound,
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewConversationNotFoundError は会話未検出エラーを生成する。
func NewConversationNotFoundError(conversationID string) *APIError {
	return &APIError{
		Code:     ErrCodeConversationNotFound,
		Message:  fmt.Sprintf("指定された会話が見つかりません: %s", conversationID),
		Category: CategoryNotFound,
		Action:   "会話IDを確認してください。",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定されたアイテムが見つかりません: %s", itemID),
		Category: CategoryNotFound,
		Action:   "アイテムIDを確認してください。",
	}
}

// NewDocumentNotFoundError はドキュメント未検出エラーを生成する。
// ストア層が返す汎用のNotFound。上位層でドメイン固有のエラーに変換される。
func NewDocumentNotFoundError(collection, id string) *APIError {
	return &APIError{
		Code:     ErrCodeDocumentNotFound,
		Message:  fmt.Sprintf("ドキュメントが見つかりません: %s/%s", collection, id),
		Category: CategoryNotFound,
		Action:   "対象のIDを確認してください。",
	}
}

// NewEmptyMessageError は空メッセージエラーを生成する。
// リモート呼び出しの前に検出される（fail fast）。
func NewEmptyMessageError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyMessage,
		Message:  "メッセージ本文が空です。",
		Category: CategoryValidation,
		Action:   "メッセージを入力してから送信してください。",
	}
}

// NewInvalidParticipantsError は会話参加者不正エラーを生成する。
func NewInvalidParticipantsError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidParticipants,
		Message:  fmt.Sprintf("会話の参加者が不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "会話の相手を選び直してください。",
	}
}

// NewMissingFollowTargetError はフォロー対象未指定エラーを生成する。
func NewMissingFollowTargetError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingFollowTarget,
		Message:  "フォロー対象のプロバイダーIDが指定されていません。",
		Category: CategoryValidation,
		Action:   "フォローするプロバイダーを選択してください。",
	}
}

// NewInvalidImageURLError は画像URL不正エラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("画像URLが不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "https:// で始まる公開URLを指定してください。",
	}
}

// NewMissingFieldError は必須フィールド未指定エラーを生成する。
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("必須フィールドが指定されていません: %s", field),
		Category: CategoryValidation,
		Action:   fmt.Sprintf("%s を入力してください。", field),
	}
}

// NewInvalidRoleError は役割不正エラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("この操作が許可されていない役割です: %s", role),
		Category: CategoryValidation,
		Action:   "アカウントの種別を確認してください。",
	}
}

// NewStoreUnavailableError はストア一時障害エラーを生成する。
// 自動リトライは行わず、呼び出し側が手動リトライを提供する。
func NewStoreUnavailableError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  fmt.Sprintf("ストアへのアクセスに失敗しました: %v", err),
		Category: CategoryTransient,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewPermissionDeniedError は権限不足エラーを生成する。
func NewPermissionDeniedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePermissionDenied,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", reason),
		Category: CategoryPermission,
		Action:   "対象の会話やアイテムに参加しているか確認してください。",
	}
}

// hasCategory はエラーチェーン内のAPIErrorが指定カテゴリかを判定する。
func hasCategory(err error, category string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category == category
	}
	return false
}

// IsNotFound はNotFound系のエラーかを判定する。
func IsNotFound(err error) bool { return hasCategory(err, CategoryNotFound) }

// IsValidation はValidationFailure系のエラーかを判定する。
func IsValidation(err error) bool { return hasCategory(err, CategoryValidation) }

// IsTransient はTransientStoreFailure系のエラーかを判定する。
// ローカルの楽観的状態はこのクラスの失敗でロールバックする必要がある。
func IsTransient(err error) bool { return hasCategory(err, CategoryTransient) }

// IsPermissionDenied はPermissionDenied系のエラーかを判定する。
func IsPermissionDenied(err error) bool { return hasCategory(err, CategoryPermission) }
