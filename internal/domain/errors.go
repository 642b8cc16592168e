package domain

import "errors"

var (
	ErrNoSession                = errors.New("no stored session")
	ErrNotAuthenticated         = errors.New("not authenticated")
	ErrNoPendingSession         = errors.New("no pending authentication cookies")
	ErrEncryptionUnavailable    = errors.New("session encryption unavailable")
	ErrNoJoinableLocation       = errors.New("no joinable world location")
	ErrConnectivity             = errors.New("platform unreachable")
	ErrUnsupportedTwoFactorKind = errors.New("unsupported two-factor kind")
	ErrInvalidMessageType       = errors.New("invalid message type")
	ErrInvalidMessageSlot       = errors.New("message slot index out of range")
)
