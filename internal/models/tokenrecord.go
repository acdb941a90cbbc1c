package models

import "time"

// TokenRecord is the single stored token of a user. It is persisted as the
// JSON body of a Document whose ID is the user id.
type TokenRecord struct {
	ID          string `json:"id"`
	HashedToken string `json:"hashedToken"`
	// ExpiresAt is epoch milliseconds.
	ExpiresAt int64  `json:"expiresAt"`
	OriginURL string `json:"originUrl,omitempty"`

	// Revision is owned by the repository and never serialized into the body.
	Revision string `json:"-"`
}

// Expired reports whether the record expired strictly before now.
func (r *TokenRecord) Expired(now time.Time) bool {
	return r.ExpiresAt < now.UnixMilli()
}

// Expiry returns ExpiresAt as a time.Time.
func (r *TokenRecord) Expiry() time.Time {
	return time.UnixMilli(r.ExpiresAt)
}
