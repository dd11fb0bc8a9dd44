package entities

import "errors"

// Precondition failures are raised before any network call and are never retried.
var (
	ErrProtocolTokenMissing   = errors.New("protocol token missing: login to the reward protocol first")
	ErrWalletNotConfigured    = errors.New("wallet session adapter not configured")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrWalletAddressNotCached = errors.New("wallet address not available: fetch it before redeeming")
	ErrNoCurrentOrder         = errors.New("no current order")
)

// Authentication failures surface to the user as a message.
var (
	ErrWalletNotLoggedIn        = errors.New("wallet is not logged in")
	ErrWalletAddressUnavailable = errors.New("failed to get wallet address")
	ErrEmailRequired            = errors.New("email is required for protocol login")
	ErrLoginFailed              = errors.New("protocol login failed")
	ErrEmailMismatch            = errors.New("wallet email does not match the configured email")
)

// ErrPermitDataMissing is returned when the vault permit builder produced no call data
var ErrPermitDataMissing = errors.New("vault permit builder returned no data")

// ErrorResponse is the JSON body returned by the HTTP API on failure
type ErrorResponse struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}
