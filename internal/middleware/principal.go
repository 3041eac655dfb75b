// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/ichiba/internal/model"
)

// principalHeaderName は外側の認証層が検証済みユーザーIDを渡すヘッダー名。
// 資格情報の検証自体は外部コラボレーターの責務で、ここではIDの実在確認のみ行う。
const principalHeaderName = "X-User-ID"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// PrincipalFinder はプリンシパルの実在確認に必要なインターフェース。
// identity.Adapterの部分集合として定義する。
type PrincipalFinder interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// NewPrincipalMiddleware はX-User-IDヘッダーからプリンシパルを読み取り、
// アイデンティティストアでの実在を検証するミドルウェアを返す。
// 検証済みユーザーIDをリクエストコンテキストに注入する。
// ヘッダー欠落または未知のIDのリクエストには401 Unauthorizedを返す。
func NewPrincipalMiddleware(finder PrincipalFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(principalHeaderName)
			if userID == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := finder.GetUser(r.Context(), userID)
			if err != nil {
				slog.Error("failed to verify principal",
					slog.String("error", err.Error()),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if user == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// プリンシパルミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
