package types

// Public error types returned in the HTTP error envelope. The frontend
// switches on these to decide whether to re-prompt for the vault password or
// to rerun the unlock flow.
const (
	PublicHTTPErrorTypeGeneric            = "generic"
	PublicHTTPErrorTypeInvalidCredentials = "invalid_credentials"
	PublicHTTPErrorTypeSessionRequired    = "session_required"
	PublicHTTPErrorTypeSessionExpired     = "session_expired"
)
