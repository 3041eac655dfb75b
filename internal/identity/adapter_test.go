package identity

import (
	"context"
	"testing"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/store"
)

func TestStoreAdapter_CreateAndGetUser(t *testing.T) {
	a := NewStoreAdapter(store.NewMemoryStore())
	ctx := context.Background()

	user := &model.User{
		ID:          "u1",
		Role:        model.RoleProvider,
		DisplayName: "ネイルサロン花",
		Rating:      4.8,
	}
	if err := a.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("CreateUser should stamp CreatedAt/UpdatedAt")
	}

	got, err := a.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if got == nil {
		t.Fatal("GetUser returned nil for an existing user")
	}
	if got.DisplayName != "ネイルサロン花" || got.Role != model.RoleProvider {
		t.Errorf("user = %+v, want DisplayName=ネイルサロン花 Role=provider", got)
	}
}

func TestStoreAdapter_GetUser_Missing_ReturnsNilNil(t *testing.T) {
	a := NewStoreAdapter(store.NewMemoryStore())

	got, err := a.GetUser(context.Background(), "no-such")
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if got != nil {
		t.Errorf("user = %+v, want nil", got)
	}
}

func TestStoreAdapter_CreateUser_Duplicate_ReturnsError(t *testing.T) {
	a := NewStoreAdapter(store.NewMemoryStore())
	ctx := context.Background()

	if err := a.CreateUser(ctx, &model.User{ID: "u1"}); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if err := a.CreateUser(ctx, &model.User{ID: "u1"}); err == nil {
		t.Fatal("CreateUser for an existing ID should return error")
	}
}

// fieldsに含まれないフィールドは変更されないこと
func TestStoreAdapter_UpdateUser_PartialUpdate(t *testing.T) {
	a := NewStoreAdapter(store.NewMemoryStore())
	ctx := context.Background()

	a.CreateUser(ctx, &model.User{
		ID:          "u1",
		Role:        model.RoleProvider,
		DisplayName: "旧名",
		Rating:      4.2,
		Followed:    []string{"p1"},
	})

	if err := a.UpdateUser(ctx, "u1", map[string]any{"display_name": "新名"}); err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}

	got, _ := a.GetUser(ctx, "u1")
	if got.DisplayName != "新名" {
		t.Errorf("DisplayName = %q, want 新名", got.DisplayName)
	}
	if got.Rating != 4.2 {
		t.Errorf("Rating = %v, want 4.2 (untouched)", got.Rating)
	}
	if len(got.Followed) != 1 || got.Followed[0] != "p1" {
		t.Errorf("Followed = %v, want [p1] (untouched)", got.Followed)
	}
}

func TestStoreAdapter_UpdateUser_Missing_ReturnsNotFound(t *testing.T) {
	a := NewStoreAdapter(store.NewMemoryStore())

	err := a.UpdateUser(context.Background(), "no-such", map[string]any{"display_name": "x"})
	if !model.IsNotFound(err) {
		t.Errorf("IsNotFound(err) = false, err = %v", err)
	}
}
