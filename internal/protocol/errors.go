package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy = "E_WORLD_BUSY"
	ErrUnloaded  = "E_UNLOADED"

	// Request layer.
	ErrBadRequest  = "E_BAD_REQUEST"
	ErrNotFound    = "E_NOT_FOUND"
	ErrOccupied    = "E_OCCUPIED"
	ErrUnknownType = "E_UNKNOWN_TYPE"
	ErrNotConfig   = "E_NOT_CONFIGURABLE"
	ErrInternal    = "E_INTERNAL"

	// Link assignment.
	ErrSelfAssign    = "E_SELF_ASSIGN"
	ErrNoSource      = "E_NOSOURCE"
	ErrNoTarget      = "E_NOTARGET"
	ErrAlreadyLinked = "E_ALREADY_LINKED"
	ErrTooFar        = "E_TOO_FAR"
	ErrLinksDisabled = "E_LINKS_DISABLED"
	ErrTooManyLinks  = "E_TOO_MANY_LINKS"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldBusy:       {},
	ErrUnloaded:        {},
	ErrBadRequest:      {},
	ErrNotFound:        {},
	ErrOccupied:        {},
	ErrUnknownType:     {},
	ErrNotConfig:       {},
	ErrInternal:        {},
	ErrSelfAssign:      {},
	ErrNoSource:        {},
	ErrNoTarget:        {},
	ErrAlreadyLinked:   {},
	ErrTooFar:          {},
	ErrLinksDisabled:   {},
	ErrTooManyLinks:    {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
