package auth

import (
	"time"

	"gopkg.in/square/go-jose.v2/jwt"
)

// TokenVerifier wraps a parsed but not yet verified access token.
type TokenVerifier struct {
	token    *jwt.JSONWebToken
	apiKey   string
	identity string
}

func ParseToken(raw string) (*TokenVerifier, error) {
	tok, err := jwt.ParseSigned(raw)
	if err != nil {
		return nil, err
	}

	out := jwt.Claims{}
	if err := tok.UnsafeClaimsWithoutVerification(&out); err != nil {
		return nil, err
	}

	return &TokenVerifier{
		token:    tok,
		apiKey:   out.Issuer,
		identity: out.ID,
	}, nil
}

// APIKey returns the key this token claims to be signed with.
func (v *TokenVerifier) APIKey() string { return v.apiKey }

// Identity returns the participant identity minted into the token.
func (v *TokenVerifier) Identity() string { return v.identity }

// UnverifiedGrants decodes the claim set without checking the
// signature. The client side uses this to read back its own token;
// trust decisions stay on the signing service.
func (v *TokenVerifier) UnverifiedGrants() (*ClaimGrants, error) {
	claims := ClaimGrants{}
	if err := v.token.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// Verify checks the signature and validity window against the secret.
func (v *TokenVerifier) Verify(secret string) (*ClaimGrants, error) {
	if secret == "" {
		return nil, ErrKeysMissing
	}
	out := jwt.Claims{}
	claims := ClaimGrants{}
	if err := v.token.Claims([]byte(secret), &out, &claims); err != nil {
		return nil, err
	}
	if err := out.Validate(jwt.Expected{Issuer: v.apiKey, Time: time.Now()}); err != nil {
		return nil, err
	}
	return &claims, nil
}
