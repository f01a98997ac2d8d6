package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/voxflow/voxflow/pkg/domain"
)

// RunChannelStoreContract exercises the behavior every ChannelStore adapter
// must share. Adapter test packages call it with a fresh store.
func RunChannelStoreContract(t *testing.T, store ChannelStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetByUID on missing channel", func(t *testing.T) {
		_, err := store.GetByUID(ctx, "missing")
		if !errors.Is(err, domain.ErrChannelNotFound) {
			t.Fatalf("expected ErrChannelNotFound, got %v", err)
		}
	})

	t.Run("Insert then GetByUID round-trips", func(t *testing.T) {
		ch := domain.NewChannel("contract-1")
		ch.SetVariable("caller.name", "alice")
		if err := ch.Stack.Push("sub-1"); err != nil {
			t.Fatalf("push: %v", err)
		}

		if err := store.Insert(ctx, ch); err != nil {
			t.Fatalf("insert: %v", err)
		}

		got, err := store.GetByUID(ctx, "contract-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.NodeID != domain.StartNodeID {
			t.Errorf("node id = %q, want %q", got.NodeID, domain.StartNodeID)
		}
		if v, ok := got.Variable("caller.name"); !ok || v != "alice" {
			t.Errorf("caller.name = %v (ok=%v), want alice", v, ok)
		}
		if top, ok := got.CallStackOrNew().Peek(); !ok || top != "sub-1" {
			t.Errorf("stack top = %q (ok=%v), want sub-1", top, ok)
		}
	})

	t.Run("Insert duplicate UID conflicts", func(t *testing.T) {
		if err := store.Insert(ctx, domain.NewChannel("contract-1")); !errors.Is(err, domain.ErrChannelExists) {
			t.Fatalf("expected ErrChannelExists, got %v", err)
		}
	})

	t.Run("Update persists position and state", func(t *testing.T) {
		ch, err := store.GetByUID(ctx, "contract-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		ch.Advance("menu", domain.StateNone)
		ch.SetVariable("opt", "1")
		if err := store.Update(ctx, ch); err != nil {
			t.Fatalf("update: %v", err)
		}

		got, err := store.GetByUID(ctx, "contract-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.NodeID != "menu" {
			t.Errorf("node id = %q, want menu", got.NodeID)
		}
		if v, _ := got.Variable("opt"); v != "1" {
			t.Errorf("opt = %v, want 1", v)
		}
	})

	t.Run("stored channel is not aliased", func(t *testing.T) {
		first, err := store.GetByUID(ctx, "contract-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		first.SetVariable("scratch", true)

		second, err := store.GetByUID(ctx, "contract-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if _, ok := second.Variable("scratch"); ok {
			t.Error("mutation of a loaded channel leaked into the store")
		}
	})
}
