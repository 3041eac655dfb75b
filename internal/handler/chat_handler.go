package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
)

// ChatServiceInterface はチャットハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	// CreateOrGet はペアの会話を取得し、なければ作成する。
	CreateOrGet(ctx context.Context, consumerID, providerID string) (*model.Conversation, error)
	// Get は会話を取得する。存在しない場合はCONVERSATION_NOT_FOUNDエラー。
	Get(ctx context.Context, conversationID string) (*model.Conversation, error)
	// AppendMessage は会話にメッセージを追記する。
	AppendMessage(ctx context.Context, conversationID, senderID, content string) (*model.Message, error)
}

// ChatHandler は会話のHTTPハンドラー。
type ChatHandler struct {
	service ChatServiceInterface
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service ChatServiceInterface) *ChatHandler {
	return &ChatHandler{service: service}
}

// createConversationRequest は会話作成リクエストのボディ。
type createConversationRequest struct {
	ConsumerID string `json:"consumer_id"`
	ProviderID string `json:"provider_id"`
}

// sendMessageRequest はメッセージ送信リクエストのボディ。
type sendMessageRequest struct {
	Content string `json:"content"`
}

// messageListResponse はメッセージ一覧のレスポンス。
type messageListResponse struct {
	ConversationID string          `json:"conversation_id"`
	Messages       []model.Message `json:"messages"`
}

// CreateOrGet はペアの会話を取得または作成する。
// 同じペアで何度呼んでも同じ会話が返る。
// POST /api/conversations
func (h *ChatHandler) CreateOrGet(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	// 呼び出し元自身が参加者でないペアの会話は作成できない
	if userID != req.ConsumerID && userID != req.ProviderID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewPermissionDeniedError("呼び出し元が会話の参加者ではありません"))
		return
	}

	conv, err := h.service.CreateOrGet(r.Context(), req.ConsumerID, req.ProviderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conv)
}

// ListMessages は会話のメッセージ一覧を取得する。
// GET /api/conversations/:id/messages
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	conversationID := chi.URLParam(r, "id")

	conv, err := h.service.Get(r.Context(), conversationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !conv.HasParticipant(userID) {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewPermissionDeniedError("この会話の参加者ではありません"))
		return
	}

	messages := conv.Messages
	if messages == nil {
		messages = []model.Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messageListResponse{
		ConversationID: conv.ID,
		Messages:       messages,
	})
}

// SendMessage は会話にメッセージを送信する。
// POST /api/conversations/:id/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	conversationID := chi.URLParam(r, "id")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	msg, err := h.service.AppendMessage(r.Context(), conversationID, userID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}
