// Package identity extracts the current user's identity from the session
// token. The token is issued and signed by the backend; the client does not
// hold the signing key, so claims are read without signature verification
// and only used for display and for scoping realtime subscriptions. All
// authorization decisions stay on the server.
package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/viktors2008/mediadrive/internal/common"
)

type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// Identity is the decoded view of the session token.
type Identity struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// FromToken decodes the session token without verifying its signature.
// An expired token is rejected so the app can prompt for re-login instead
// of issuing requests the server would refuse anyway.
func FromToken(tokenString string) (*Identity, error) {
	claims := &Claims{}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: token carries no user id", common.ErrUnauthorized)
	}

	id := &Identity{UserID: claims.UserID, Email: claims.Email}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
		if time.Now().After(id.ExpiresAt) {
			return nil, fmt.Errorf("%w: session token expired", common.ErrUnauthorized)
		}
	}

	return id, nil
}
