package domain

import "time"

// User represents a registered member of the feed. Identifier is the unique
// login handle (an email address); DisplayName and Avatar are the mutable
// profile fields.
type User struct {
	Identifier     string    `json:"identifier"`
	CredentialHash string    `json:"credential_hash,omitempty"`
	DisplayName    string    `json:"display_name"`
	Avatar         string    `json:"avatar,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
