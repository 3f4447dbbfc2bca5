/**
 * @description
 * This file contains custom middleware for the HTTP router. Authentication
 * validates Logto-issued JWTs against the provider's JWKS endpoint and places
 * an explicit identity.Session in the request context. Routes that must work
 * for anonymous visitors (plan selection returns a sign-in redirect instead of
 * an error) use the optional variant, which degrades to an anonymous session.
 */
package api

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/myscrollr/uplink-service/pkg/identity"
)

// sessionContextKey is a custom type for the context key to avoid collisions.
type sessionContextKey struct{}

const jwksRefreshInterval = time.Hour

// Authenticator validates bearer tokens and builds request sessions.
type Authenticator struct {
	jwksURL  string
	issuer   string
	audience string

	httpClient *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewAuthenticator creates an Authenticator for the given JWKS endpoint.
// Issuer and audience checks are skipped when the respective value is empty.
func NewAuthenticator(jwksURL, issuer, audience string) *Authenticator {
	return &Authenticator{
		jwksURL:    jwksURL,
		issuer:     issuer,
		audience:   audience,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		keys:       make(map[string]*rsa.PublicKey),
	}
}

// RequireAuth rejects requests without a valid bearer token.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.sessionFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

// OptionalAuth attaches a session when a valid token is present and an
// anonymous session otherwise; it never rejects.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.sessionFromRequest(r)
		if err != nil {
			sess = identity.Anonymous()
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

// sessionFromRequest extracts and validates the bearer token.
func (a *Authenticator) sessionFromRequest(r *http.Request) (identity.Session, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("authorization header required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return nil, fmt.Errorf("invalid authorization header format")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("kid not found in token header")
		}
		return a.publicKey(kid)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if a.issuer != "" {
		if iss, _ := claims["iss"].(string); iss != a.issuer {
			return nil, fmt.Errorf("invalid token issuer")
		}
	}
	if a.audience != "" && !audienceMatches(claims["aud"], a.audience) {
		return nil, fmt.Errorf("invalid token audience")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("token missing 'sub' claim")
	}

	idClaims := identity.Claims{Subject: sub}
	if username, ok := claims["username"].(string); ok {
		idClaims.Username = username
	}
	if name, ok := claims["name"].(string); ok {
		idClaims.Name = name
	}

	return identity.NewBearerSession(idClaims, tokenString), nil
}

// audienceMatches handles both string and array forms of the aud claim.
func audienceMatches(aud interface{}, expected string) bool {
	switch v := aud.(type) {
	case string:
		return v == expected
	case []interface{}:
		for _, entry := range v {
			if s, ok := entry.(string); ok && s == expected {
				return true
			}
		}
	}
	return false
}

// publicKey returns the RSA key for a key ID, refreshing the cached JWKS when
// the key is unknown or the cache is stale.
func (a *Authenticator) publicKey(kid string) (*rsa.PublicKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if key, ok := a.keys[kid]; ok && time.Since(a.fetchedAt) < jwksRefreshInterval {
		return key, nil
	}

	if err := a.refreshKeysLocked(); err != nil {
		// Fall back to a stale key rather than failing every request during
		// a provider outage.
		if key, ok := a.keys[kid]; ok {
			return key, nil
		}
		return nil, err
	}

	key, ok := a.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key with kid %s not found in JWKS", kid)
	}
	return key, nil
}

// refreshKeysLocked fetches the JWKS document. Caller holds a.mu.
func (a *Authenticator) refreshKeysLocked() error {
	resp, err := a.httpClient.Get(a.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			continue
		}
		keys[key.Kid] = pub
	}

	a.keys = keys
	a.fetchedAt = time.Now()
	return nil
}

// parseRSAPublicKey parses an RSA public key from base64url modulus and exponent.
func parseRSAPublicKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var exp uint64
	for _, b := range eb {
		exp = (exp << 8) | uint64(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(exp),
	}, nil
}

// withSession stores the session in the request context.
func withSession(ctx context.Context, sess identity.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext retrieves the request session. Handlers behind the auth
// middleware always get one; otherwise an anonymous session is returned.
func SessionFromContext(ctx context.Context) identity.Session {
	if sess, ok := ctx.Value(sessionContextKey{}).(identity.Session); ok {
		return sess
	}
	return identity.Anonymous()
}
