package redis_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"

	redisadapter "github.com/voxflow/voxflow/internal/adapters/redis"
	"github.com/voxflow/voxflow/internal/logging"
	"github.com/voxflow/voxflow/pkg/domain"
	"github.com/voxflow/voxflow/pkg/ports"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore_Contract(t *testing.T) {
	store := redisadapter.NewFromClient(newTestClient(t))
	ports.RunChannelStoreContract(t, store)
}

func TestRedisStoreAssignsIDs(t *testing.T) {
	store := redisadapter.NewFromClient(newTestClient(t))
	ctx := context.Background()

	first := domain.NewChannel("uid-a")
	second := domain.NewChannel("uid-b")
	if err := store.Insert(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, second); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID == 0 || second.ID == 0 || first.ID == second.ID {
		t.Errorf("surrogate ids not unique: %d, %d", first.ID, second.ID)
	}
}

func TestRedisFlowSource(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	doc := domain.FlowDocument{
		Nodes: []map[string]any{{"id": "start", "type": "answer", "o_connection": "finish"}},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := client.Set(ctx, "voxflow:flow:main", data, 0).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	source := redisadapter.NewFlowSource(client, logging.NewNop())

	flow, err := source.Flow(ctx, "main")
	if err != nil {
		t.Fatalf("flow: %v", err)
	}
	if flow.Node("start") == nil {
		t.Error("start node missing")
	}

	if _, err := source.Flow(ctx, "missing"); err != domain.ErrFlowNotFound {
		t.Errorf("expected ErrFlowNotFound, got %v", err)
	}

	utils, err := source.Utilities(ctx)
	if err != nil {
		t.Fatalf("utilities: %v", err)
	}
	if utils.Middleware("any") != nil {
		t.Error("empty bundle should have no middlewares")
	}
}

var _ ports.FlowSource = (*redisadapter.FlowSource)(nil)
