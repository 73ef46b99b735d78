package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

type bindingKey struct {
	kind   core.TrackKind
	origin core.TrackOrigin
}

type binding struct {
	trackID string
	owner   domain.Identity
	sink    core.Sink
}

// Binder owns the attachment table between tracks and render sinks.
// At most one binding is active per (kind, origin) pair; attaching a
// new track of the same pair detaches the prior one first, so a sink
// never plays two streams at once.
type Binder struct {
	mu      sync.Mutex
	video   core.Sink
	audio   core.Sink
	closed  bool
	entries map[bindingKey]*binding
	byTrack map[string]bindingKey
}

func NewBinder(video, audio core.Sink) *Binder {
	return &Binder{
		video:   video,
		audio:   audio,
		entries: make(map[bindingKey]*binding),
		byTrack: make(map[string]bindingKey),
	}
}

// Bind attaches a track to the kind-appropriate sink, if one is
// mounted. A track arriving before its sink exists is dropped; that
// race is an accepted limitation, the attach is only logged.
func (b *Binder) Bind(t core.Track) {
	// Never play the local microphone back to ourselves.
	if t.Kind() == core.KindAudio && t.Origin() == core.OriginLocal {
		log.Debug().Str("module", "session.binder").Str("track_id", t.ID()).Msg("skipping local audio playback")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		// Teardown already ran; a late event must not re-attach.
		return
	}

	sink := b.sinkFor(t.Kind())
	if sink == nil {
		log.Warn().Str("module", "session.binder").
			Str("track_id", t.ID()).
			Str("kind", t.Kind().String()).
			Msg("no sink mounted, attach dropped")
		return
	}

	key := bindingKey{kind: t.Kind(), origin: t.Origin()}
	if prev, ok := b.entries[key]; ok {
		prev.sink.Stop()
		delete(b.byTrack, prev.trackID)
		log.Debug().Str("module", "session.binder").Str("track_id", prev.trackID).Msg("detached prior binding")
	}

	if err := sink.Play(t); err != nil {
		log.Error().Err(err).Str("module", "session.binder").Str("track_id", t.ID()).Msg("attach failed")
		delete(b.entries, key)
		return
	}
	b.entries[key] = &binding{trackID: t.ID(), owner: t.Owner(), sink: sink}
	b.byTrack[t.ID()] = key
	log.Info().Str("module", "session.binder").
		Str("track_id", t.ID()).
		Str("kind", t.Kind().String()).
		Str("origin", t.Origin().String()).
		Msg("track attached")
}

// Unbind detaches the binding for a track id, if any. Unknown ids
// are ignored so unsubscribe events can race teardown safely.
func (b *Binder) Unbind(trackID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key, ok := b.byTrack[trackID]
	if !ok {
		return
	}
	if e, ok := b.entries[key]; ok && e.trackID == trackID {
		e.sink.Stop()
		delete(b.entries, key)
	}
	delete(b.byTrack, trackID)
	log.Info().Str("module", "session.binder").Str("track_id", trackID).Msg("track detached")
}

// UnbindOwner detaches every binding owned by one participant.
func (b *Binder) UnbindOwner(owner domain.Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, e := range b.entries {
		if e.owner != owner {
			continue
		}
		e.sink.Stop()
		delete(b.byTrack, e.trackID)
		delete(b.entries, key)
	}
}

// DetachAll releases every binding and makes the binder terminal.
// Safe to call more than once.
func (b *Binder) DetachAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for key, e := range b.entries {
		e.sink.Stop()
		delete(b.byTrack, e.trackID)
		delete(b.entries, key)
	}
}

// GatePlayback mutes or unmutes local playback on the audio sink.
// It never touches any publication.
func (b *Binder) GatePlayback(muted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.audio != nil {
		b.audio.SetMuted(muted)
	}
}

func (b *Binder) sinkFor(kind core.TrackKind) core.Sink {
	if kind == core.KindVideo {
		return b.video
	}
	return b.audio
}
