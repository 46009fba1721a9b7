// README: Session identity extraction from the stored JWT.
package credstore

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"valetlink/internal/types"
)

// IdentityFromToken pulls the subject and role claims out of the session
// token. The token was already verified by the issuing server; this side
// only needs the claims, so no key is required here.
func IdentityFromToken(token string) (types.SessionIdentity, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return types.SessionIdentity{}, fmt.Errorf("parse session token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return types.SessionIdentity{}, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return types.SessionIdentity{}, fmt.Errorf("session token missing subject")
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return types.SessionIdentity{}, fmt.Errorf("session token missing role claim")
	}

	return types.SessionIdentity{
		UserID: types.ID(sub),
		Role:   types.Role(role),
	}, nil
}

// LoadIdentity reads the session token from the store and decodes it.
func LoadIdentity(ctx context.Context, store Store) (types.SessionIdentity, error) {
	token, err := store.Read(ctx, KeySessionToken)
	if err != nil {
		return types.SessionIdentity{}, fmt.Errorf("read session token: %w", err)
	}
	return IdentityFromToken(token)
}
