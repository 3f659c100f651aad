package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestReservationLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	expires := time.Now().Add(time.Hour)
	if err := store.CreateReservation(ctx, "ROOMKEY1", nil, expires); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if err := store.CreateReservation(ctx, "ROOMKEY1", nil, expires); err != ErrRoomReserved {
		t.Fatalf("expected ErrRoomReserved, got %v", err)
	}

	res, err := store.GetReservation(ctx, "ROOMKEY1")
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if res == nil || res.Key != "ROOMKEY1" {
		t.Fatalf("unexpected reservation: %+v", res)
	}
	if len(res.PasscodeHash) != 0 {
		t.Fatalf("expected no passcode hash, got %v", res.PasscodeHash)
	}

	if err := store.DeleteReservation(ctx, "ROOMKEY1"); err != nil {
		t.Fatalf("DeleteReservation: %v", err)
	}
	res, err = store.GetReservation(ctx, "ROOMKEY1")
	if err != nil {
		t.Fatalf("GetReservation after delete: %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil reservation after delete")
	}
	// deleting again is a no-op
	if err := store.DeleteReservation(ctx, "ROOMKEY1"); err != nil {
		t.Fatalf("second DeleteReservation: %v", err)
	}
}

func TestExpiredReservationIsInvisible(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := store.CreateReservation(ctx, "STALE", nil, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	res, err := store.GetReservation(ctx, "STALE")
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if res != nil {
		t.Fatalf("expected expired reservation to read as absent, got %+v", res)
	}

	// the sweep still sees the raw row so it can delete it
	all, err := store.ListReservations(ctx)
	if err != nil {
		t.Fatalf("ListReservations: %v", err)
	}
	if len(all) != 1 || all[0].Key != "STALE" {
		t.Fatalf("unexpected reservations: %+v", all)
	}
}

func TestPasscodeHashRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	hash := []byte("bcrypt-output-bytes")
	if err := store.CreateReservation(ctx, "LOCKED", hash, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	res, err := store.GetReservation(ctx, "LOCKED")
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if res == nil || string(res.PasscodeHash) != string(hash) {
		t.Fatalf("passcode hash did not round-trip: %+v", res)
	}
}
