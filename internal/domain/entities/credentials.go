package entities

// SessionCredentials is the per-session authentication state owned by the
// redemption orchestrator. Empty strings mean "not known yet".
type SessionCredentials struct {
	WalletAddress           string `json:"walletAddress,omitempty"`
	ProtocolToken           string `json:"-"`
	LoggedInEmail           string `json:"loggedInEmail,omitempty"`
	IsProtocolAuthenticated bool   `json:"isProtocolAuthenticated"`
}

// HasProtocolToken reports whether backend calls requiring auth can be made
func (c SessionCredentials) HasProtocolToken() bool {
	return c.ProtocolToken != ""
}

// UserMetadata is what the wallet provider knows about the logged in user
type UserMetadata struct {
	WalletAddress string `json:"walletAddress"`
	Email         string `json:"email"`
}

// LoginRequest is sent to auth/login
type LoginRequest struct {
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
}

// LoginResult is the auth/login response
type LoginResult struct {
	User  *ProtocolUser `json:"user"`
	Token string        `json:"token"`
}

type ProtocolUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
}
