package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

func TestNewLocalParticipant(t *testing.T) {
	p, err := domain.NewLocalParticipant("Ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name)
	assert.True(t, p.IsLocal)
	assert.NotEmpty(t, p.Identity)

	// Each join mints a fresh identity.
	q, err := domain.NewLocalParticipant("Ada")
	require.NoError(t, err)
	assert.NotEqual(t, p.Identity, q.Identity)
}

func TestNewLocalParticipantValidation(t *testing.T) {
	_, err := domain.NewLocalParticipant("")
	assert.ErrorIs(t, err, domain.ErrNameEmpty)

	_, err = domain.NewLocalParticipant("   ")
	assert.ErrorIs(t, err, domain.ErrNameEmpty)

	_, err = domain.NewLocalParticipant(strings.Repeat("x", domain.MaxDisplayNameLen+1))
	assert.ErrorIs(t, err, domain.ErrNameTooLong)

	p, err := domain.NewLocalParticipant("  Grace  ")
	require.NoError(t, err)
	assert.Equal(t, "Grace", p.Name)
}

func TestRole(t *testing.T) {
	assert.True(t, domain.RoleHost.CanPublish())
	assert.False(t, domain.RoleViewer.CanPublish())
	assert.Equal(t, "host", domain.RoleHost.String())
	assert.Equal(t, "viewer", domain.RoleViewer.String())
}
