package domain

import "time"

// User is the credential record the gateway reads on every request and the
// revocation authority mutates. TokenVersion is monotonic: it only ever
// increases, and a token is live only while its embedded version is >= the
// stored one. Banned invalidates every outstanding token immediately,
// regardless of version.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Bio          string
	AvatarURL    string
	Banned       bool
	TokenVersion int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
