// Package domain contains the core entities of the voxflow engine:
// the Channel (one persisted call session), the Flow graph and its typed
// Nodes, the subroutine CallStack, and the outbound middleware definitions.
//
// Types here are transport- and storage-agnostic. Adapters serialize them
// (usually as JSON blobs) and the runtime mutates them while walking a flow.
package domain
