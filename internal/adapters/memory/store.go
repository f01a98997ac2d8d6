// Package memory provides in-process adapters: a ChannelStore for tests and
// single-node deployments, and a FlowSource fed from pre-parsed documents.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/voxflow/voxflow/internal/logging"
	"github.com/voxflow/voxflow/pkg/domain"
)

// Store implements ports.ChannelStore on a mutex-guarded map. Records are
// deep-copied through their JSON form on the way in and out, so callers never
// share memory with the store.
type Store struct {
	mu     sync.RWMutex
	byUID  map[string][]byte
	nextID atomic.Int64
}

// New creates an empty store.
func New() *Store {
	return &Store{byUID: map[string][]byte{}}
}

func (s *Store) Insert(ctx context.Context, ch *domain.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUID[ch.UID]; ok {
		return domain.ErrChannelExists
	}
	ch.ID = s.nextID.Add(1)

	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encode channel %s: %w", ch.UID, err)
	}
	s.byUID[ch.UID] = data
	return nil
}

func (s *Store) Update(ctx context.Context, ch *domain.Channel) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encode channel %s: %w", ch.UID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUID[ch.UID] = data
	return nil
}

func (s *Store) GetByUID(ctx context.Context, uid string) (*domain.Channel, error) {
	s.mu.RLock()
	data, ok := s.byUID[uid]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrChannelNotFound
	}

	var ch domain.Channel
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("decode channel %s: %w", uid, err)
	}
	if ch.Variables == nil {
		ch.Variables = map[string]any{}
	}
	return &ch, nil
}

// FlowSource serves flows decoded from documents registered up front.
type FlowSource struct {
	mu    sync.RWMutex
	flows map[string]*domain.Flow
	utils *domain.FlowUtilities
}

// NewFlowSource creates an empty source.
func NewFlowSource() *FlowSource {
	return &FlowSource{flows: map[string]*domain.Flow{}}
}

// AddFlow registers a flow document under a name.
func (f *FlowSource) AddFlow(name string, doc domain.FlowDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flows[name] = domain.DecodeFlow(name, doc, logging.NewNop())
}

// SetUtilities registers the flow-utilities bundle.
func (f *FlowSource) SetUtilities(u *domain.FlowUtilities) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.utils = u
}

func (f *FlowSource) Flow(ctx context.Context, name string) (*domain.Flow, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	flow, ok := f.flows[name]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	return flow, nil
}

func (f *FlowSource) Utilities(ctx context.Context) (*domain.FlowUtilities, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.utils, nil
}
