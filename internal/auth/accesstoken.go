// Package auth mints and verifies short-lived join credentials.
package auth

import (
	"errors"
	"time"

	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

const defaultValidDuration = 6 * time.Hour

var (
	ErrKeysMissing = errors.New("api key and secret are required")
	ErrCredential  = errors.New("invalid credential request")
)

// AccessToken produces a token signed with the API key and secret.
type AccessToken struct {
	apiKey   string
	secret   string
	identity string
	name     string
	grant    *VideoGrant
	validFor time.Duration
}

func NewAccessToken(key, secret string) *AccessToken {
	return &AccessToken{
		apiKey: key,
		secret: secret,
	}
}

func (t *AccessToken) SetIdentity(identity string) *AccessToken {
	t.identity = identity
	return t
}

func (t *AccessToken) SetName(name string) *AccessToken {
	t.name = name
	return t
}

func (t *AccessToken) SetValidFor(d time.Duration) *AccessToken {
	t.validFor = d
	return t
}

func (t *AccessToken) AddGrant(grant *VideoGrant) *AccessToken {
	t.grant = grant
	return t
}

func (t *AccessToken) ToJWT() (string, error) {
	if t.apiKey == "" || t.secret == "" {
		return "", ErrKeysMissing
	}

	sig, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte(t.secret)},
		(&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", err
	}

	validFor := defaultValidDuration
	if t.validFor > 0 {
		validFor = t.validFor
	}

	cl := jwt.Claims{
		Issuer:    t.apiKey,
		NotBefore: jwt.NewNumericDate(time.Now()),
		Expiry:    jwt.NewNumericDate(time.Now().Add(validFor)),
		ID:        t.identity,
	}
	grants := &ClaimGrants{Name: t.name}
	if t.grant != nil {
		grants.Video = t.grant
	}
	return jwt.Signed(sig).Claims(cl).Claims(grants).CompactSerialize()
}
