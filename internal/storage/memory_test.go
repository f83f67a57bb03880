package storage

import (
	"context"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	_, ok, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if ok {
		t.Fatal("expected no state before first save")
	}

	input := sampleState()
	if err := store.Save(ctx, input); err != nil {
		t.Fatalf("save: %v", err)
	}
	output, ok, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted state")
	}
	assertSameState(t, input, output)

	// Saved state does not alias the caller's slices.
	input.Collection.Owned[0].SpeciesID = 999
	again, _, _ := store.Load(ctx)
	if again.Collection.Owned[0].SpeciesID != 133 {
		t.Fatalf("store aliased caller state: %+v", again.Collection.Owned[0])
	}

	store.Reset()
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatal("expected reset to forget state")
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if _, _, err := store.Load(context.Background()); err == nil {
		t.Fatal("expected load before init to fail")
	}
	if err := store.Save(context.Background(), sampleState()); err == nil {
		t.Fatal("expected save before init to fail")
	}
}
