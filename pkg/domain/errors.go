package domain

import "errors"

var (
	// ErrChannelNotFound is returned by stores when no channel exists for a UID.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrChannelExists is returned by ChannelStore.Insert when the UID is
	// already taken. Callers resolve the creation race by re-reading.
	ErrChannelExists = errors.New("channel already exists")

	// ErrFlowNotFound is returned by flow sources for unknown flow names.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrStackOverflow is returned when a subroutine call would exceed the
	// call stack capacity. It is fatal for the step, never silently dropped.
	ErrStackOverflow = errors.New("call stack overflow")
)
