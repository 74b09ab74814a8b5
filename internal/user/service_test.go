package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hiroyukim/warikan/internal/storage/memory"
	"github.com/hiroyukim/warikan/internal/user"
)

func TestRegister(t *testing.T) {
	svc := user.NewService(memory.NewStore())
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "  Alice  ")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if u.ID != "alice" {
		t.Errorf("id: expected 'alice', got '%s'", u.ID)
	}
	if u.Name != "Alice" {
		t.Errorf("name: expected trimmed 'Alice', got '%s'", u.Name)
	}
	if u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Error("expected timestamps set")
	}

	// Re-registering refreshes the display name
	u, err = svc.Register(ctx, "alice", "Alice W.")
	if err != nil {
		t.Fatalf("second Register failed: %v", err)
	}
	if u.Name != "Alice W." {
		t.Errorf("name not refreshed: got '%s'", u.Name)
	}
}

func TestRegister_EmptyName(t *testing.T) {
	svc := user.NewService(memory.NewStore())

	if _, err := svc.Register(context.Background(), "alice", "   "); !errors.Is(err, user.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestGet(t *testing.T) {
	svc := user.NewService(memory.NewStore())
	ctx := context.Background()

	if _, err := svc.Get(ctx, "ghost"); !errors.Is(err, user.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	if _, err := svc.Register(ctx, "alice", "Alice"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	u, err := svc.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if u.Name != "Alice" {
		t.Errorf("name: expected 'Alice', got '%s'", u.Name)
	}
}
