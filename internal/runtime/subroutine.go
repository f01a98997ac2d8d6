package runtime

import (
	"context"
	"fmt"

	"github.com/voxflow/voxflow/pkg/domain"
)

// execSubroutine is both call-site and return-site of a sub-flow, across two
// separate visits. The first visit pushes this node's id and enters go_sub;
// when the sub-flow falls through the stack pop routes control back here, and
// the second visit advances past the node. A visit that pops someone else's
// frame is a nested call: the foreign frame goes back on the stack under this
// node's own frame before entering go_sub again.
func execSubroutine(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.SubroutineSpec)
	stack := s.channel.CallStackOrNew()

	entry := s.renderString(spec.GoSub)
	if entry == "" {
		return "", fmt.Errorf("subroutine %q: empty go_sub", s.node.ID)
	}

	if stack.Empty() {
		if err := stack.Push(s.node.ID); err != nil {
			return "", err
		}
		return entry, nil
	}

	top, _ := stack.Pop()
	if top != s.node.ID {
		if err := stack.Push(top); err != nil {
			return "", err
		}
		if err := stack.Push(s.node.ID); err != nil {
			return "", err
		}
		return entry, nil
	}

	// Own frame popped: the sub-flow returned. The shared rule skips the
	// stack for subroutine nodes to protect the entry phase, but the return
	// phase must still unwind to an outer caller, so the pop happens here.
	next := s.renderString(s.node.Next)
	if next != "" && next != domain.EdgeFinish {
		return next, nil
	}
	if id, ok := stack.Pop(); ok {
		return id, nil
	}
	return "", nil
}
