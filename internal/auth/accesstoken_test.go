package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2/jwt"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/auth"
)

const (
	testAPIKey = "APIabcdef"
	testSecret = "this-is-a-long-enough-test-secret"
)

func TestAccessToken(t *testing.T) {
	t.Run("keys must be set", func(t *testing.T) {
		token := auth.NewAccessToken("", "")
		_, err := token.ToJWT()
		assert.Equal(t, auth.ErrKeysMissing, err)
	})

	t.Run("generates a decodeable token", func(t *testing.T) {
		grant := &auth.VideoGrant{RoomJoin: true, Room: "ABC123", CanPublish: true, CanSubscribe: true}
		at := auth.NewAccessToken(testAPIKey, testSecret).
			AddGrant(grant).
			SetValidFor(time.Minute * 5).
			SetIdentity("user").
			SetName("Ada")
		value, err := at.ToJWT()
		require.NoError(t, err)

		assert.Len(t, strings.Split(value, "."), 3)

		token, err := jwt.ParseSigned(value)
		require.NoError(t, err)

		decoded := auth.ClaimGrants{}
		require.NoError(t, token.UnsafeClaimsWithoutVerification(&decoded))
		assert.EqualValues(t, grant, decoded.Video)
		assert.Equal(t, "Ada", decoded.Name)
	})
}

func TestIssuer(t *testing.T) {
	issuer := auth.NewIssuer(testAPIKey, testSecret)

	t.Run("rejects empty room", func(t *testing.T) {
		_, err := issuer.IssueCredential("", "id", "Ada", true)
		assert.ErrorIs(t, err, auth.ErrCredential)
	})

	t.Run("rejects empty identity", func(t *testing.T) {
		_, err := issuer.IssueCredential("ABC123", "", "Ada", true)
		assert.ErrorIs(t, err, auth.ErrCredential)
	})

	t.Run("host gets publish grant, viewer does not", func(t *testing.T) {
		for _, canPublish := range []bool{true, false} {
			raw, err := issuer.IssueCredential("ABC123", "id", "Ada", canPublish)
			require.NoError(t, err)

			v, err := auth.ParseToken(raw)
			require.NoError(t, err)
			grants, err := v.Verify(testSecret)
			require.NoError(t, err)

			require.NotNil(t, grants.Video)
			assert.True(t, grants.Video.RoomJoin)
			assert.Equal(t, "ABC123", grants.Video.Room)
			assert.Equal(t, canPublish, grants.Video.CanPublish)
			assert.True(t, grants.Video.CanSubscribe)
		}
	})
}

func TestVerifier(t *testing.T) {
	issuer := auth.NewIssuer(testAPIKey, testSecret)
	raw, err := issuer.IssueCredential("ABC123", "user-1", "Ada", false)
	require.NoError(t, err)

	v, err := auth.ParseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, testAPIKey, v.APIKey())
	assert.Equal(t, "user-1", v.Identity())

	t.Run("wrong secret fails", func(t *testing.T) {
		_, err := v.Verify("not-the-secret-not-the-secret-no")
		assert.Error(t, err)
	})

	t.Run("unverified grants decode", func(t *testing.T) {
		grants, err := v.UnverifiedGrants()
		require.NoError(t, err)
		require.NotNil(t, grants.Video)
		assert.Equal(t, "ABC123", grants.Video.Room)
	})
}
