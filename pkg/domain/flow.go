package domain

import (
	"log/slog"
	"sync"
)

// Flow is a named graph of nodes plus flow-scoped default variables.
// Node ids are unique within a flow; lookup order is id-cache, then a linear
// scan that fills the cache, so repeated resolutions of the same id are O(1).
type Flow struct {
	Name     string
	Defaults map[string]any
	Nodes    []*Node

	mu    sync.RWMutex
	index map[string]*Node
}

// Node resolves a node by id, or nil when the id is unknown. Unknown ids are
// not an error at this layer: the session driver treats them as "reset the
// channel to start".
func (f *Flow) Node(id string) *Node {
	if id == "" {
		return nil
	}

	f.mu.RLock()
	n, ok := f.index[id]
	f.mu.RUnlock()
	if ok {
		return n
	}

	for _, candidate := range f.Nodes {
		if candidate.ID == id {
			f.mu.Lock()
			if f.index == nil {
				f.index = make(map[string]*Node)
			}
			f.index[id] = candidate
			f.mu.Unlock()
			return candidate
		}
	}
	return nil
}

// FlowDocument is the raw on-disk form of a flow: default variables plus a
// list of untyped node maps. Adapters parse YAML/JSON into this shape and
// DecodeFlow turns it into a typed Flow.
type FlowDocument struct {
	FlowVariables map[string]any   `yaml:"flow_variables" json:"flow_variables"`
	Nodes         []map[string]any `yaml:"nodes" json:"nodes"`
}

// DecodeFlow builds a Flow from its raw document. Nodes with an unknown type
// are logged and skipped; they do not fail the rest of the flow.
func DecodeFlow(name string, doc FlowDocument, logger *slog.Logger) *Flow {
	f := &Flow{
		Name:     name,
		Defaults: doc.FlowVariables,
	}
	if f.Defaults == nil {
		f.Defaults = map[string]any{}
	}

	for _, raw := range doc.Nodes {
		node, err := DecodeNode(raw)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping flow node", "flow", name, "err", err)
			}
			continue
		}
		f.Nodes = append(f.Nodes, node)
	}
	return f
}
