package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestIssuer(t *testing.T, now func() time.Time) *TokenIssuer {
	t.Helper()
	iss, err := NewTokenIssuer("test-secret", WithIssuerClock(now))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return iss
}

func TestTokenIssueAndVerify(t *testing.T) {
	iss := newTestIssuer(t, time.Now)
	id := Identity{UserID: 42, Email: "alice@example.com", Name: "Alice"}

	token, exp, err := iss.Issue(id, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if got := strings.Count(token, "."); got != 2 {
		t.Fatalf("expected three segments, got %d dots", got)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiry, got %v", exp)
	}

	claims, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Identity() != id {
		t.Fatalf("unexpected identity: %+v", claims.Identity())
	}
	if claims.ID == "" {
		t.Fatalf("expected jti")
	}
}

func TestTokenPayloadFieldNames(t *testing.T) {
	iss := newTestIssuer(t, time.Now)
	token, _, err := iss.Issue(Identity{UserID: 7, Email: "bob@example.com", Name: "Bob"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.Split(token, ".")[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	for _, key := range []string{"userId", "email", "name", "exp", "iat"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("payload missing %q: %v", key, payload)
		}
	}
	if payload["userId"] != float64(7) {
		t.Fatalf("unexpected userId: %v", payload["userId"])
	}
}

func TestTokenExpired(t *testing.T) {
	base := time.Now()
	iss := newTestIssuer(t, func() time.Time { return base })

	token, _, err := iss.Issue(Identity{UserID: 1, Email: "a@b.c"}, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := iss.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}

	token, _, err = iss.Issue(Identity{UserID: 1, Email: "a@b.c"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	later := newTestIssuer(t, func() time.Time { return base.Add(2 * time.Hour) })
	if _, err := later.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken after ttl, got %v", err)
	}
}

func TestTokenTamperedSignature(t *testing.T) {
	iss := newTestIssuer(t, time.Now)
	token, _, err := iss.Issue(Identity{UserID: 1, Email: "a@b.c"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)
	if _, err := iss.Verify(tampered); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	other, err := NewTokenIssuer("another-secret")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for foreign secret, got %v", err)
	}
}

func TestTokenTamperedClaims(t *testing.T) {
	iss := newTestIssuer(t, time.Now)
	token, _, err := iss.Issue(Identity{UserID: 1, Email: "a@b.c"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(token, ".")
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"userId":2,"email":"x@y.z","exp":9999999999}`))
	if _, err := iss.Verify(parts[0] + "." + forged + "." + parts[2]); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	iss := newTestIssuer(t, time.Now)
	claims := Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := iss.Verify(none); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for alg=none, got %v", err)
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}
	if _, err := iss.Verify(hs512); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for HS512, got %v", err)
	}
}

func TestTokenMalformed(t *testing.T) {
	iss := newTestIssuer(t, time.Now)
	for _, raw := range []string{"", "   ", "abc", "a.b", "a.b.c", "!!!.@@@.###"} {
		if _, err := iss.Verify(raw); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("Verify(%q): expected ErrMalformedToken, got %v", raw, err)
		}
	}
}

func TestTokenWithoutExpiryIsRejected(t *testing.T) {
	iss := newTestIssuer(t, time.Now)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := iss.Verify(token); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("  "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestIssueRequiresUserID(t *testing.T) {
	iss := newTestIssuer(t, time.Now)
	if _, _, err := iss.Issue(Identity{Email: "a@b.c"}, time.Hour); err == nil {
		t.Fatal("expected error for zero user id")
	}
}

func TestParseBearer(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer   abc  ", "abc", true},
		{"BEARER x.y.z", "x.y.z", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		token, ok := ParseBearer(tc.header)
		if ok != tc.ok || token != tc.token {
			t.Fatalf("ParseBearer(%q)=(%q,%v), want (%q,%v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}
