package runtime

import (
	"context"
	"sync"

	"github.com/voxflow/voxflow/pkg/domain"
	"github.com/voxflow/voxflow/pkg/ports"
)

// channelCache is the identity cache in front of the channel store: the most
// recently loaded instance per UID, evicted explicitly on flow end. It avoids
// redundant reads within a burst of events for the same call; storage stays
// authoritative.
type channelCache struct {
	mu sync.Mutex
	m  map[string]*domain.Channel
}

func newChannelCache() *channelCache {
	return &channelCache{m: map[string]*domain.Channel{}}
}

func (c *channelCache) get(uid string) (*domain.Channel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.m[uid]
	return ch, ok
}

func (c *channelCache) put(ch *domain.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[ch.UID] = ch
}

func (c *channelCache) evict(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, uid)
}

// flowCache holds flows and the flow-utilities bundle for the process
// lifetime. There is no invalidation; edits require a restart.
type flowCache struct {
	mu    sync.Mutex
	flows map[string]*domain.Flow

	utilsOnce sync.Once
	utils     *domain.FlowUtilities
	utilsErr  error
}

func newFlowCache() *flowCache {
	return &flowCache{flows: map[string]*domain.Flow{}}
}

func (c *flowCache) get(ctx context.Context, source ports.FlowSource, name string) (*domain.Flow, error) {
	c.mu.Lock()
	if f, ok := c.flows[name]; ok {
		c.mu.Unlock()
		return f, nil
	}
	c.mu.Unlock()

	f, err := source.Flow(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.flows[name]; ok {
		return cached, nil
	}
	c.flows[name] = f
	return f, nil
}

func (c *flowCache) utilities(ctx context.Context, source ports.FlowSource) (*domain.FlowUtilities, error) {
	c.utilsOnce.Do(func() {
		c.utils, c.utilsErr = source.Utilities(ctx)
	})
	return c.utils, c.utilsErr
}
