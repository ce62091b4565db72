// Package registration stages unverified signups and promotes them to accounts
// once the phone number is confirmed with a one-time code.
package registration

import "time"

// PendingRegistration is a signup awaiting phone verification. It is keyed by
// phone and unique by email.
type PendingRegistration struct {
	Phone         string
	Email         string
	Name          string
	RequestedRole string
	Code          string
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// IsExpired reports whether the code is past its expiry at now.
func (p PendingRegistration) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Request carries the fields of a new signup.
type Request struct {
	Name  string
	Email string
	Phone string
	Role  string
}

// Verification carries the fields that complete a signup.
type Verification struct {
	Phone    string
	Code     string
	Password string
}

// Ack acknowledges that a code was issued. It never carries the code.
type Ack struct {
	Phone     string    `json:"phone"`
	ExpiresAt time.Time `json:"expires_at"`
}
