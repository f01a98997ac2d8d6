package domain

import (
	"testing"

	"github.com/voxflow/voxflow/internal/logging"
)

func TestFlowNodeLookupCache(t *testing.T) {
	flow := &Flow{
		Name: "main",
		Nodes: []*Node{
			{ID: "start", Kind: KindAnswer, Spec: &AnswerSpec{}},
			{ID: "menu", Kind: KindNoOp, Spec: &NoOpSpec{}},
		},
	}

	first := flow.Node("menu")
	if first == nil {
		t.Fatal("menu not found")
	}
	if cached := flow.Node("menu"); cached != first {
		t.Error("cached lookup returned a different instance")
	}
	if flow.Node("missing") != nil {
		t.Error("unknown id should resolve to nil")
	}
	if flow.Node("") != nil {
		t.Error("empty id should resolve to nil")
	}
}

func TestDecodeFlowSkipsUnknownTypes(t *testing.T) {
	doc := FlowDocument{
		FlowVariables: map[string]any{"greeting": "hello"},
		Nodes: []map[string]any{
			{"id": "start", "type": "answer", "o_connection": "wat"},
			{"id": "wat", "type": "quantum_leap"},
			{"id": "bye", "type": "hangup"},
		},
	}

	flow := DecodeFlow("main", doc, logging.NewNop())
	if len(flow.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2 (unknown type skipped)", len(flow.Nodes))
	}
	if flow.Node("wat") != nil {
		t.Error("skipped node should not resolve")
	}
	if flow.Defaults["greeting"] != "hello" {
		t.Error("flow variables lost")
	}
}
