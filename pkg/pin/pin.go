// Package pin holds the domain model for the secondary-authentication gate
// layered on top of the primary session.
package pin

// Status is the PIN gate state for the current session. Verification is
// process-local and never persists across sessions: a fresh session starts
// at NoCredential or SetUnverified depending on whether a credential exists.
type Status string

const (
	StatusNoCredential  Status = "no_credential"
	StatusSetUnverified Status = "credential_set_unverified"
	StatusSetVerified   Status = "credential_set_verified"
)

// VerifyResult is the outcome of a verification attempt. Verified false with
// a Reason is a normal outcome, not an error: retry with new input is
// permitted and there is no lockout in the current design.
type VerifyResult struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitzero"`
}

// StatusResponse is the payload for GET /pin.
type StatusResponse struct {
	Status Status `json:"status"`
}

// SetRequest is the payload for POST /pin.
type SetRequest struct {
	Pin string `json:"pin" validate:"required"`
}

// VerifyRequest is the payload for POST /pin/verify.
type VerifyRequest struct {
	Pin string `json:"pin" validate:"required"`
}

// ChangeRequest is the payload for PATCH /pin.
type ChangeRequest struct {
	OldPin string `json:"old_pin" validate:"required"`
	NewPin string `json:"new_pin" validate:"required"`
}
