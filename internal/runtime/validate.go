package runtime

import (
	"fmt"
	"strings"

	"github.com/voxflow/voxflow/pkg/domain"
)

// ValidateFlow statically checks a flow graph: every referenced edge must
// resolve to a node, and every node should be reachable from the entry node.
// Edges containing template expressions are only resolvable at run time and
// are skipped. The returned issues are advisory; an empty slice means clean.
func ValidateFlow(flow *domain.Flow) []string {
	var issues []string

	if flow.Node(domain.StartNodeID) == nil {
		issues = append(issues, fmt.Sprintf("flow %q has no %q node", flow.Name, domain.StartNodeID))
	}

	reachable := map[string]bool{}
	var walk func(id string)
	walk = func(id string) {
		if id == "" || reachable[id] {
			return
		}
		node := flow.Node(id)
		if node == nil {
			return
		}
		reachable[id] = true
		for _, target := range nodeEdges(node) {
			walk(target)
		}
	}
	walk(domain.StartNodeID)

	for _, node := range flow.Nodes {
		if !reachable[node.ID] {
			issues = append(issues, fmt.Sprintf("node %q is unreachable from %q", node.ID, domain.StartNodeID))
		}
		for _, target := range nodeEdges(node) {
			if flow.Node(target) == nil {
				issues = append(issues, fmt.Sprintf("node %q: edge to unknown node %q", node.ID, target))
			}
		}
	}
	return issues
}

// nodeEdges lists a node's statically resolvable outgoing edges.
func nodeEdges(node *domain.Node) []string {
	var out []string
	add := func(target string) {
		target = strings.TrimSpace(target)
		if target == "" || target == domain.EdgeFinish || strings.Contains(target, "{{") {
			return
		}
		out = append(out, target)
	}

	add(node.Next)
	switch spec := node.Spec.(type) {
	case *domain.SwitchSpec:
		for _, c := range spec.Cases {
			add(c.OConnection)
		}
	case *domain.GetDataSpec:
		for _, c := range spec.Cases {
			add(c.OConnection)
		}
	case *domain.HTTPRequestSpec:
		for _, c := range spec.Cases {
			add(c.OConnection)
		}
	case *domain.SubroutineSpec:
		add(spec.GoSub)
	}
	return out
}
