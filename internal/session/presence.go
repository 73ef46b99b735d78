package session

import (
	"sync"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

// Presence mirrors the transport's authoritative roster. The count
// is always re-read from the transport, never incremented locally,
// so missed or duplicated events cannot make it drift.
type Presence struct {
	mu        sync.RWMutex
	transport core.TransportSession
	count     int
}

func NewPresence(t core.TransportSession) *Presence {
	return &Presence{transport: t}
}

// Refresh re-reads the roster size. Called on Connected,
// ParticipantJoined and ParticipantLeft.
func (p *Presence) Refresh() int {
	n := p.transport.NumParticipants()
	p.mu.Lock()
	p.count = n
	p.mu.Unlock()
	return n
}

func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.count
}

func (p *Presence) Roster() []domain.Participant {
	return p.transport.Roster()
}
