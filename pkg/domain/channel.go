package domain

import (
	"github.com/Jeffail/gabs/v2"
)

// ChannelState is the coarse lifecycle status of a channel. The zero value
// means "in flow": positioned on a node, neither fresh nor finished.
type ChannelState string

const (
	StateNone  ChannelState = ""
	StateStart ChannelState = "start"
	StateInput ChannelState = "input"
	StateEnd   ChannelState = "end"
)

// StartNodeID is the entry node every flow must define and the position a
// channel is reset to when its flow ends or its node id cannot be resolved.
const StartNodeID = "start"

// Channel is one persisted call session. It is keyed by the UID assigned by
// the call-control protocol and records the channel's position in the flow
// graph, its variable bag and its subroutine call stack.
//
// The runtime mutates a Channel in memory during one protocol event and
// persists it through a ports.ChannelStore; storage is authoritative.
type Channel struct {
	ID        int64          `json:"id"`
	UID       string         `json:"channel_uid"`
	NodeID    string         `json:"node_id"`
	State     ChannelState   `json:"state"`
	Variables map[string]any `json:"variables"`
	Stack     *CallStack     `json:"call_stack"`
}

// NewChannel returns a channel positioned at the flow entry node.
func NewChannel(uid string) *Channel {
	return &Channel{
		UID:       uid,
		NodeID:    StartNodeID,
		Variables: map[string]any{},
		Stack:     NewCallStack(),
	}
}

// Variable resolves a dotted-path variable id ("a.b.c") against the variable
// bag. The second return reports whether the path exists.
func (c *Channel) Variable(path string) (any, bool) {
	if path == "" || c.Variables == nil {
		return nil, false
	}
	v := gabs.Wrap(c.Variables).Path(path)
	if v == nil {
		return nil, false
	}
	return v.Data(), true
}

// SetVariable assigns a value at a dotted path, creating intermediate maps
// as needed. Setting "a.b" when "a" does not exist creates it.
func (c *Channel) SetVariable(path string, value any) {
	if path == "" {
		return
	}
	if c.Variables == nil {
		c.Variables = map[string]any{}
	}
	// gabs wraps the map by reference, so SetP mutates Variables in place.
	_, _ = gabs.Wrap(c.Variables).SetP(value, path)
}

// SetVariables assigns every entry of the given map.
func (c *Channel) SetVariables(vars map[string]any) {
	for k, v := range vars {
		c.SetVariable(k, v)
	}
}

// DeleteVariable removes the value at a dotted path. Missing paths are a
// no-op: unsetting what was never set must not fail.
func (c *Channel) DeleteVariable(path string) {
	if path == "" || c.Variables == nil {
		return
	}
	_ = gabs.Wrap(c.Variables).DeleteP(path)
}

// DeleteVariables removes every listed path.
func (c *Channel) DeleteVariables(paths []string) {
	for _, p := range paths {
		c.DeleteVariable(p)
	}
}

// Advance repositions the channel on a node and records its lifecycle state.
func (c *Channel) Advance(nodeID string, state ChannelState) {
	c.NodeID = nodeID
	c.State = state
}

// Reset returns the channel to the flow entry with a clean variable bag and
// stack. The record itself survives, so the same call UID can restart a flow.
func (c *Channel) Reset() {
	c.NodeID = StartNodeID
	c.State = StateNone
	c.Variables = map[string]any{}
	if c.Stack == nil {
		c.Stack = NewCallStack()
	} else {
		c.Stack.Clear()
	}
}

// Ended reports whether the channel reached a terminal state.
func (c *Channel) Ended() bool {
	return c.State == StateEnd
}

// CallStackOrNew returns the channel's stack, allocating one for records
// loaded from storage layers that persisted a null blob.
func (c *Channel) CallStackOrNew() *CallStack {
	if c.Stack == nil {
		c.Stack = NewCallStack()
	}
	return c.Stack
}
