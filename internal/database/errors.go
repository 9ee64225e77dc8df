package database

import "errors"

// Guard failures surfaced to API callers. Each operation returns exactly one
// of these kinds so the transport layer can map them to distinct responses.
var (
	// ErrNotFound: referenced connection, booking or user does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden: acting user is not a permitted party to the entity.
	ErrForbidden = errors.New("acting user is not a party to this record")

	// ErrInvalidTarget: operation names the same user as both parties.
	ErrInvalidTarget = errors.New("sender and receiver must be different users")

	// ErrDuplicateRequest: an active request already exists between the pair.
	ErrDuplicateRequest = errors.New("an active connection request already exists between these users")

	// ErrInvalidState: connection request is not in the required status.
	ErrInvalidState = errors.New("request is not in a state that permits this action")

	// ErrInvalidTransition: booking status change is not an edge of the
	// lifecycle graph for the acting role, or lost a concurrent update.
	ErrInvalidTransition = errors.New("status transition not permitted from current state")

	// ErrInvalidRange: booking end time is not after its start time.
	ErrInvalidRange = errors.New("booking end time must be after start time")

	// ErrInvalidFilter: status query filter names no known booking status.
	ErrInvalidFilter = errors.New("unknown booking status filter")

	// ErrUnknownService: booking names a service type absent from the catalog.
	ErrUnknownService = errors.New("unknown service type")
)
