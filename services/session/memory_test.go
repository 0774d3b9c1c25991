package session

import (
	"context"
	"errors"
	"testing"

	"busmitra/models"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
	}

	sess := models.NewSession("s1")
	sess.Intent.Slots[models.SlotOrigin] = models.SlotValue{Value: "Chennai", Confidence: 0.9}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Intent.Get(models.SlotOrigin) != "Chennai" {
		t.Errorf("round trip lost slot data: %+v", got.Intent.Slots)
	}

	// Mutating the returned copy must not leak back into the store.
	got.Intent.Slots[models.SlotOrigin] = models.SlotValue{Value: "Salem"}
	again, _ := store.Get(ctx, "s1")
	if again.Intent.Get(models.SlotOrigin) != "Chennai" {
		t.Error("Get returned a shared reference, not a copy")
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreLockSerializesTurns(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	release, err := store.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Same session contends, a different session does not.
	if _, err := store.Acquire(ctx, "s1"); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Acquire = %v, want ErrLocked", err)
	}
	other, err := store.Acquire(ctx, "s2")
	if err != nil {
		t.Fatalf("Acquire(s2): %v", err)
	}
	other()

	release()
	release2, err := store.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	release2()
}
