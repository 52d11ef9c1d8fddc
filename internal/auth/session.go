package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"gitsum/internal/models"
	"gitsum/internal/storage"
)

// DefaultSessionCookie is the cookie name the external OAuth layer uses
// for its session token.
const DefaultSessionCookie = "session-token"

// SessionClaims is the subset of the session token this service cares
// about. The token itself is minted by the external identity layer; we
// only verify and read it.
type SessionClaims struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Picture   string `json:"picture,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Subject   string `json:"sub,omitempty"`
	jwt.RegisteredClaims
}

// DecodeSessionToken verifies an HS256 session token against the shared
// secret. Any failure (bad signature, malformed, expired) is reported as
// a plain false, never an error: an unusable token is the same as no
// token.
func DecodeSessionToken(tokenString string, secret []byte) (*SessionClaims, bool) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}

// UserDirectory is the user lookup the resolver needs from storage.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionResolver maps an inbound request to an application user id by
// decoding the session cookie and looking the email up in the directory.
type SessionResolver struct {
	cookieName string
	secret     []byte
	users      UserDirectory
}

// NewSessionResolver creates a resolver bound to a cookie name and the
// shared signing secret.
func NewSessionResolver(cookieName string, secret []byte, users UserDirectory) *SessionResolver {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	return &SessionResolver{
		cookieName: cookieName,
		secret:     secret,
		users:      users,
	}
}

// Claims extracts and verifies the session claims from a request. False
// means "no usable session", which is not an error.
func (r *SessionResolver) Claims(req *http.Request) (*SessionClaims, bool) {
	cookie, err := req.Cookie(r.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	claims, ok := DecodeSessionToken(cookie.Value, r.secret)
	if !ok {
		return nil, false
	}

	// Older sessions were minted before the email claim existed; those
	// callers have to sign in again.
	if claims.Email == "" {
		return nil, false
	}

	return claims, true
}

// ResolveUserID resolves the request to a user id. All absence conditions
// (no cookie, invalid token, no email claim, no matching user row) come
// back as ok=false; the error return is reserved for the store being
// unreachable.
func (r *SessionResolver) ResolveUserID(ctx context.Context, req *http.Request) (uuid.UUID, bool, error) {
	claims, ok := r.Claims(req)
	if !ok {
		return uuid.Nil, false, nil
	}

	user, err := r.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// The sign-in callback that provisions users did not run for
			// this session; treat as unauthenticated, not as a failure.
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}

	return user.ID, true, nil
}
