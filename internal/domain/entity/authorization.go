package entity

// AuthorizationState mirrors the platform's location authorization status.
// The engine only snapshots and reacts to it; the platform owns transitions.
type AuthorizationState string

const (
	AuthorizationUndetermined AuthorizationState = "undetermined"
	AuthorizationDenied       AuthorizationState = "denied"
	AuthorizationRestricted   AuthorizationState = "restricted"
	AuthorizationWhileInUse   AuthorizationState = "whileInUse"
	AuthorizationAlways       AuthorizationState = "always"
)

// Valid reports whether the value is one of the known authorization states.
func (s AuthorizationState) Valid() bool {
	switch s {
	case AuthorizationUndetermined, AuthorizationDenied, AuthorizationRestricted,
		AuthorizationWhileInUse, AuthorizationAlways:
		return true
	default:
		return false
	}
}

// AllowsMonitoring reports whether region monitoring may proceed. Only the
// "always" grant is sufficient; anything weaker forces teardown.
func (s AuthorizationState) AllowsMonitoring() bool {
	return s == AuthorizationAlways
}
