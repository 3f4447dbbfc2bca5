/**
 * @description
 * This package defines the read-only session surface the rest of the service
 * uses to ask identity questions. Instead of ambient auth state, a Session is
 * built per request by the API middleware and passed down explicitly. No
 * component refreshes or invalidates tokens through it; they only read the
 * current one.
 */
package identity

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrNotAuthenticated is returned by token suppliers backed by an anonymous
// session.
var ErrNotAuthenticated = errors.New("identity: session is not authenticated")

// TokenSupplier returns the current access token for an upstream call.
// Collaborator clients take one per call rather than holding credentials.
type TokenSupplier func(ctx context.Context) (string, error)

// Claims is the subset of OIDC ID-token claims the service reads.
type Claims struct {
	Subject  string `json:"sub"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Session is the explicit, read-only identity of one request.
type Session interface {
	// IsAuthenticated reports whether the request carried a valid token.
	IsAuthenticated() bool
	// Subject returns the identity provider subject, or "" when anonymous.
	Subject() string
	// Claims returns the validated ID-token claims, zero-valued when anonymous.
	Claims() Claims
	// Token returns a supplier for the request's bearer token.
	Token() TokenSupplier
}

// bearerSession is a Session backed by a validated bearer token.
type bearerSession struct {
	claims Claims
	token  string
}

// NewBearerSession builds an authenticated session from validated claims and
// the raw bearer token that produced them.
func NewBearerSession(claims Claims, token string) Session {
	return &bearerSession{claims: claims, token: token}
}

func (s *bearerSession) IsAuthenticated() bool { return true }
func (s *bearerSession) Subject() string       { return s.claims.Subject }
func (s *bearerSession) Claims() Claims        { return s.claims }

func (s *bearerSession) Token() TokenSupplier {
	token := s.token
	return func(ctx context.Context) (string, error) {
		return token, nil
	}
}

// anonymousSession is the Session for requests without a valid token.
type anonymousSession struct{}

// Anonymous returns the session used for unauthenticated requests.
func Anonymous() Session { return anonymousSession{} }

func (anonymousSession) IsAuthenticated() bool { return false }
func (anonymousSession) Subject() string       { return "" }
func (anonymousSession) Claims() Claims        { return Claims{} }

func (anonymousSession) Token() TokenSupplier {
	return func(ctx context.Context) (string, error) {
		return "", ErrNotAuthenticated
	}
}

// SignInURL builds the identity provider's sign-in redirect with a return URL
// pointing back to the page the user was on.
func SignInURL(endpoint, returnTo string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	return endpoint + "/sign-in?returnTo=" + url.QueryEscape(returnTo)
}
