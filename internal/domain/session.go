package domain

import "time"

// Session is one operator login established through the OAuth2 flow. The
// session id travels in the cookie; the identity id is what the gate compares
// against the configured admin.
type Session struct {
	SessionID  string    `bson:"session_id" json:"session_id"`
	IdentityID string    `bson:"identity_id" json:"identity_id"`
	Username   string    `bson:"username" json:"username"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
