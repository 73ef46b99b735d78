package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
)

// MuteControl caches the local microphone publication state. The
// transport holds the authoritative copy; the cache only changes on
// toggles we initiate ourselves, and a failed toggle is reverted so
// the reflected state never disagrees with the publication.
type MuteControl struct {
	mu    sync.Mutex
	local core.LocalParticipant
	muted bool
}

func NewMuteControl(local core.LocalParticipant) *MuteControl {
	return &MuteControl{local: local}
}

// Toggle flips the microphone publication and returns the new muted
// flag. On transport failure the flag is reverted and ErrPublish
// returned.
func (m *MuteControl) Toggle(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := !m.muted
	m.muted = next
	if err := m.local.SetMicrophoneEnabled(ctx, !next); err != nil {
		m.muted = !next
		log.Warn().Err(err).Str("module", "session.mute").Bool("wanted_muted", next).Msg("toggle reverted")
		return m.muted, fmt.Errorf("%w: %v", ErrPublish, err)
	}
	return next, nil
}

func (m *MuteControl) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}
