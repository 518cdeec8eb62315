package storage

import (
	"context"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()

	type goal struct {
		Calories int `json:"calories"`
	}

	// Absent key leaves the default in place and reports uninitialized.
	g := goal{Calories: 2000}
	initialized, err := Read(ctx, kv, "daily_goal", &g)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if initialized {
		t.Error("Expected initialized=false for absent key")
	}
	if g.Calories != 2000 {
		t.Errorf("Expected default to survive, got %d", g.Calories)
	}

	if err := Write(ctx, kv, "daily_goal", goal{Calories: 1850}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var got goal
	initialized, err = Read(ctx, kv, "daily_goal", &got)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !initialized {
		t.Error("Expected initialized=true after write")
	}
	if got.Calories != 1850 {
		t.Errorf("Expected 1850, got %d", got.Calories)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()

	if err := Write(ctx, kv, "profile", map[string]int{"age": 30}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := kv.Delete(ctx, "profile"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, ok, err := kv.Get(ctx, "profile")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected key to be gone after Delete")
	}
}

func TestReadRejectsCorruptValue(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	if err := kv.Set(ctx, "history", []byte("{not json")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var v []string
	if _, err := Read(ctx, kv, "history", &v); err == nil {
		t.Error("Expected an error for corrupt stored value")
	}
}
