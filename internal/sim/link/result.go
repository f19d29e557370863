package link

type Result uint8

const (
	OK Result = iota
	NotMatched
	InvalidLinkData
	TooFar
	TargetGone
	Rejected
)

var resultNames = [...]string{"OK", "NOT_MATCHED", "INVALID_LINKDATA", "TOO_FAR", "TARGET_GONE", "REJECTED"}

func (r Result) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return "?"
}

// Failure reports whether r counts against ActivateAll. NotMatched is not a
// failure, it only means there was nothing to do.
func (r Result) Failure() bool {
	switch r {
	case InvalidLinkData, TooFar, TargetGone, Rejected:
		return true
	default:
		return false
	}
}
