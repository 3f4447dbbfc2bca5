package api

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/myscrollr/uplink-service/pkg/identity"
)

const testKid = "test-key-1"

// jwksFixture serves a JWKS document for a generated RSA key and signs tokens
// with it.
type jwksFixture struct {
	key    *rsa.PrivateKey
	server *httptest.Server
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	doc := map[string]interface{}{
		"keys": []map[string]string{{
			"kid": testKid,
			"kty": "RSA",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   "AQAB",
		}},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(server.Close)

	return &jwksFixture{key: key, server: server}
}

func (f *jwksFixture) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(f.key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func (f *jwksFixture) validClaims(subject string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": subject,
		"iss": "https://auth.example.com/oidc",
		"aud": "https://api.myscrollr.com",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
}

// echoSubject responds with the session subject the middleware attached.
func echoSubject(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	w.Write([]byte(sess.Subject()))
}

func TestRequireAuth(t *testing.T) {
	fx := newJWKSFixture(t)
	auth := NewAuthenticator(fx.server.URL, "https://auth.example.com/oidc", "https://api.myscrollr.com")
	protected := auth.RequireAuth(http.HandlerFunc(echoSubject))

	tests := []struct {
		name       string
		authHeader string
		wantCode   int
		wantBody   string
	}{
		{
			name:       "valid token",
			authHeader: "Bearer " + fx.sign(t, fx.validClaims("user_1")),
			wantCode:   http.StatusOK,
			wantBody:   "user_1",
		},
		{
			name:     "missing header",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:       "malformed header",
			authHeader: "Token abc",
			wantCode:   http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not.a.jwt",
			wantCode:   http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestRequireAuth_RejectsWrongIssuerAndAudience(t *testing.T) {
	fx := newJWKSFixture(t)
	auth := NewAuthenticator(fx.server.URL, "https://auth.example.com/oidc", "https://api.myscrollr.com")
	protected := auth.RequireAuth(http.HandlerFunc(echoSubject))

	wrongIssuer := fx.validClaims("user_1")
	wrongIssuer["iss"] = "https://evil.example.com"

	wrongAudience := fx.validClaims("user_1")
	wrongAudience["aud"] = "https://other.example.com"

	missingSub := fx.validClaims("user_1")
	delete(missingSub, "sub")

	expired := fx.validClaims("user_1")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	for name, claims := range map[string]jwt.MapClaims{
		"wrong issuer":   wrongIssuer,
		"wrong audience": wrongAudience,
		"missing sub":    missingSub,
		"expired":        expired,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+fx.sign(t, claims))
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestOptionalAuth_FallsBackToAnonymous(t *testing.T) {
	fx := newJWKSFixture(t)
	auth := NewAuthenticator(fx.server.URL, "", "")

	var got identity.Session
	handler := auth.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.IsAuthenticated() {
		t.Error("expected an anonymous session without a token")
	}
}

func TestOptionalAuth_AttachesValidSession(t *testing.T) {
	fx := newJWKSFixture(t)
	auth := NewAuthenticator(fx.server.URL, "", "")

	var got identity.Session
	handler := auth.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
	}))

	claims := fx.validClaims("user_9")
	claims["username"] = "scrollr_fan"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+fx.sign(t, claims))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got == nil || !got.IsAuthenticated() {
		t.Fatal("expected an authenticated session")
	}
	if got.Subject() != "user_9" {
		t.Errorf("subject = %q", got.Subject())
	}
	if got.Claims().Username != "scrollr_fan" {
		t.Errorf("username = %q", got.Claims().Username)
	}
}

func TestAudienceMatches(t *testing.T) {
	tests := []struct {
		name string
		aud  interface{}
		want bool
	}{
		{"string match", "https://api.myscrollr.com", true},
		{"string mismatch", "https://other.example.com", false},
		{"array match", []interface{}{"x", "https://api.myscrollr.com"}, true},
		{"array mismatch", []interface{}{"x", "y"}, false},
		{"nil", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := audienceMatches(tc.aud, "https://api.myscrollr.com"); got != tc.want {
				t.Errorf("audienceMatches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseRSAPublicKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	pub, err := parseRSAPublicKey(base64.RawURLEncoding.EncodeToString(key.N.Bytes()), "AQAB")
	if err != nil {
		t.Fatalf("parseRSAPublicKey failed: %v", err)
	}
	if pub.E != 65537 {
		t.Errorf("exponent = %d, want 65537", pub.E)
	}
	if pub.N.Cmp(key.N) != 0 {
		t.Error("modulus round trip mismatch")
	}

	if _, err := parseRSAPublicKey("!!!", "AQAB"); err == nil {
		t.Error("expected error for invalid modulus encoding")
	}
}
