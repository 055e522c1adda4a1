package dance

import "errors"

var (
	// ErrInvalidState is returned when an operation is not allowed in the current state, e.g.
	// starting a dance twice.
	ErrInvalidState = errors.New("dance: invalid state")
	// ErrNilCollaborator is returned when a controller is built without a provider, surface or
	// listener.
	ErrNilCollaborator = errors.New("dance: provider, surface and listener are required")
	// ErrPoolStopped is the leg failure reported when the worker pool no longer accepts tasks.
	ErrPoolStopped = errors.New("dance: worker pool is stopped")
)
