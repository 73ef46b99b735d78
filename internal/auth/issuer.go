package auth

import (
	"fmt"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

// Issuer mints per-participant join credentials for a room.
type Issuer struct {
	apiKey string
	secret string
}

func NewIssuer(apiKey, secret string) *Issuer {
	return &Issuer{apiKey: apiKey, secret: secret}
}

// IssueCredential signs a join token granting room entry, subscribe,
// and optionally publish. The room and identity must be non-empty;
// the room code itself is opaque and passed through verbatim.
func (i *Issuer) IssueCredential(room domain.RoomID, identity domain.Identity, displayName string, canPublish bool) (string, error) {
	if room == "" {
		return "", fmt.Errorf("%w: empty room", ErrCredential)
	}
	if identity == "" {
		return "", fmt.Errorf("%w: empty identity", ErrCredential)
	}

	grant := &VideoGrant{
		RoomJoin:     true,
		Room:         string(room),
		CanPublish:   canPublish,
		CanSubscribe: true,
	}
	return NewAccessToken(i.apiKey, i.secret).
		SetIdentity(string(identity)).
		SetName(displayName).
		AddGrant(grant).
		ToJWT()
}
