package models

// SessionRecord is a secondary account kept in the local cache for quick
// account switching. The token is an opaque rotation token issued by the
// backend; this client never inspects it.
type SessionRecord struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Image string `json:"image"`
	Token string `json:"token"`
}
