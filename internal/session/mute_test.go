package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuteToggleTwiceRestores(t *testing.T) {
	local := newFakeLocal("me")
	m := NewMuteControl(local)

	muted, err := m.Toggle(context.Background())
	require.NoError(t, err)
	assert.True(t, muted)

	muted, err = m.Toggle(context.Background())
	require.NoError(t, err)
	assert.False(t, muted)

	// Exactly two transport calls, in order: disable then enable.
	assert.Equal(t, []bool{false, true}, local.MicCalls())
	assert.False(t, m.Muted())
}

func TestMuteToggleRevertedOnFailure(t *testing.T) {
	local := newFakeLocal("me")
	local.micErr = errors.New("publication gone")
	m := NewMuteControl(local)

	muted, err := m.Toggle(context.Background())
	require.ErrorIs(t, err, ErrPublish)

	// The cached flag never disagrees with the publication.
	assert.False(t, muted)
	assert.False(t, m.Muted())
}
