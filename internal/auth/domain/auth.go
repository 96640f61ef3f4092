package domain

import "time"

// Session is an issued session token plus the identity baked into it.
type Session struct {
	Token     string
	UserID    string
	Username  string
	Role      Role
	ExpiresAt time.Time
}

// LoginResult is the outcome of a successful password check. Either the
// session is ready, or the user has 2FA enabled and must complete the
// challenge referenced by PendingToken before a session is issued.
type LoginResult struct {
	TwoFactorRequired bool
	PendingToken      string // short-lived challenge token, set when TwoFactorRequired
	Session           *Session
	User              PublicUser
}

// TwoFactorEnrollment is the transient artifact handed back from
// enrollment. Nothing is persisted until the secret is explicitly
// committed via the enable step.
type TwoFactorEnrollment struct {
	Secret          string // base32 encoded
	ProvisioningURI string // otpauth:// URL for QR rendering
}
