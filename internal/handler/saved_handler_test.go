package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/saved"
)

// --- モック定義 ---

// mockLedger はsaved.Ledgerのモック実装。
type mockLedger struct {
	toggleFn   func(ctx context.Context, userID, itemID string) (bool, error)
	containsFn func(ctx context.Context, userID, itemID string) (bool, error)
	listFn     func(ctx context.Context, userID string) ([]string, error)
}

func (m *mockLedger) Toggle(ctx context.Context, userID, itemID string) (bool, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, userID, itemID)
	}
	return false, nil
}

func (m *mockLedger) Contains(ctx context.Context, userID, itemID string) (bool, error) {
	if m.containsFn != nil {
		return m.containsFn(ctx, userID, itemID)
	}
	return false, nil
}

func (m *mockLedger) List(ctx context.Context, userID string) ([]string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

// --- POST /api/saved/:itemID テスト ---

func TestSavedHandler_Toggle_SaveReturnsTrue(t *testing.T) {
	ledger := &mockLedger{
		toggleFn: func(ctx context.Context, userID, itemID string) (bool, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			if itemID != "item-42" {
				t.Errorf("itemID = %q, want %q", itemID, "item-42")
			}
			return true, nil
		},
	}

	h := NewSavedHandler(ledger)

	req := httptest.NewRequest(http.MethodPost, "/api/saved/item-42", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "itemID", "item-42")
	w := httptest.NewRecorder()

	h.Toggle(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body savedToggleResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.ItemID != "item-42" || !body.Saved {
		t.Errorf("response = %+v, want {item-42 true}", body)
	}
}

func TestSavedHandler_Toggle_NoAuth_Returns401(t *testing.T) {
	h := NewSavedHandler(saved.NewMemoryLedger())

	req := httptest.NewRequest(http.MethodPost, "/api/saved/item-42", nil)
	req = withChiURLParam(req, "itemID", "item-42")
	w := httptest.NewRecorder()

	h.Toggle(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestSavedHandler_Toggle_LedgerError_Returns503(t *testing.T) {
	ledger := &mockLedger{
		toggleFn: func(ctx context.Context, userID, itemID string) (bool, error) {
			return false, model.NewStoreUnavailableError(context.DeadlineExceeded)
		},
	}

	h := NewSavedHandler(ledger)

	req := httptest.NewRequest(http.MethodPost, "/api/saved/item-42", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "itemID", "item-42")
	w := httptest.NewRecorder()

	h.Toggle(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusServiceUnavailable)
	}

	body := parseAPIErrorResponse(t, w)
	if body["category"] != model.CategoryTransient {
		t.Errorf("category = %q, want %q", body["category"], model.CategoryTransient)
	}
}

// メモリ台帳と組み合わせた2回トグルで保存→解除が往復すること
func TestSavedHandler_Toggle_TwiceWithMemoryLedger(t *testing.T) {
	h := NewSavedHandler(saved.NewMemoryLedger())

	doToggle := func() savedToggleResponse {
		req := httptest.NewRequest(http.MethodPost, "/api/saved/item-1", nil)
		req = withUserID(req, "user-1")
		req = withChiURLParam(req, "itemID", "item-1")
		w := httptest.NewRecorder()
		h.Toggle(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
		}
		var body savedToggleResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		return body
	}

	if first := doToggle(); !first.Saved {
		t.Errorf("first toggle saved = false, want true")
	}
	if second := doToggle(); second.Saved {
		t.Errorf("second toggle saved = true, want false")
	}
}

// --- GET /api/saved テスト ---

func TestSavedHandler_List_Success(t *testing.T) {
	ledger := &mockLedger{
		listFn: func(ctx context.Context, userID string) ([]string, error) {
			return []string{"item-1", "item-2"}, nil
		},
	}

	h := NewSavedHandler(ledger)

	req := httptest.NewRequest(http.MethodGet, "/api/saved", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body savedListResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.ItemIDs) != 2 {
		t.Fatalf("len(item_ids) = %d, want 2", len(body.ItemIDs))
	}
}

func TestSavedHandler_List_Empty_ReturnsEmptyArrayNotNull(t *testing.T) {
	h := NewSavedHandler(&mockLedger{})

	req := httptest.NewRequest(http.MethodGet, "/api/saved", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(raw["item_ids"]) != "[]" {
		t.Errorf("item_ids = %s, want []", raw["item_ids"])
	}
}
