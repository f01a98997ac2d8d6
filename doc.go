/*
Package voxflow is a call-flow execution engine for telephony automation: it
drives IVR sessions by receiving per-call control events over FastAGI,
interpreting a declarative flow graph, and issuing control and media commands
back to the call leg until the call terminates.

Each call maps to a persistent channel whose position in the flow survives
process restarts and repeated protocol round-trips. The engine walks the
graph node by node: prompts, digit and speech collection, outbound HTTP
calls, platform database access, subroutine calls and email dispatch, with
every node field rendered against the channel's variable scope.

# Architecture

The core is hexagonal. pkg/domain models channels, flows and nodes;
pkg/ports defines the boundaries (ChannelStore, FlowSource, CallControl,
EmailSender); internal/adapters implements them over memory, Redis, YAML
files, FastAGI and SMTP; internal/runtime is the interpreter itself.

# Usage

The voxflow CLI runs the whole stack:

	voxflow serve --config voxflow.yaml
	voxflow validate --flows ./flows main

As a library, New builds an engine over a flows directory and HandleEvent
drives one call event through any ports.CallControl implementation:

	eng, err := voxflow.New("./flows")
	if err != nil {
		log.Fatal(err)
	}
	err = eng.HandleEvent(ctx, call, "1700000000.42", "main")

Flows are YAML documents: a flow_variables map plus a list of typed nodes,
starting at the node with id "start". See the flows in examples/ for the
supported node types.
*/
package voxflow
