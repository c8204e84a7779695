package sim

import "errors"

// Lifecycle errors.
var (
	ErrEntityRemoved    = errors.New("entity already removed")
	ErrAlreadySpawned   = errors.New("entity already spawned")
	ErrNotSpawned       = errors.New("entity not spawned")
	ErrWorldFinalized   = errors.New("world already finalized")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrForeignEntity    = errors.New("entity belongs to another world")
)
