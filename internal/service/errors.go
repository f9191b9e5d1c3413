package service

import "errors"

// Validation failures.
var (
	ErrMessageEmpty            = errors.New("message cannot be empty")
	ErrMessageTooLong          = errors.New("message too long, maximum 2000 characters")
	ErrChannelNameInvalid      = errors.New("channel name must contain at least one of a-z, 0-9 or hyphen")
	ErrGeneralChannelProtected = errors.New("the general channel cannot be deleted")
)

// Conflict failures.
var ErrChannelExists = errors.New("channel already exists")

// Missing records.
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrChannelNotFound = errors.New("channel not found")
)

// Authorization failures.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrNotAdmin        = errors.New("admin privileges required")
)
