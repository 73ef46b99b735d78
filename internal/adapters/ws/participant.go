package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/media"
)

const (
	videoSampleInterval = 33 * time.Millisecond
	audioSampleInterval = 20 * time.Millisecond
)

// publication pairs a published local track with its rtp sender and
// the source feeding it.
type publication struct {
	track  *localTrack
	sender *webrtc.RTPSender
	source *media.SampleSource
}

type localParticipant struct {
	transport *Transport
	identity  domain.Identity
	name      string

	mu  sync.Mutex
	cam *publication
	mic *publication
}

func (l *localParticipant) Identity() domain.Identity { return l.identity }

func (l *localParticipant) SetCameraEnabled(ctx context.Context, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if enabled {
		if l.cam != nil {
			return nil
		}
		pub, err := l.publishLocked(core.KindVideo, webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeVP8,
			ClockRate: 90000,
		}, videoSampleInterval)
		if err != nil {
			return err
		}
		l.cam = pub
		return nil
	}

	if l.cam == nil {
		return nil
	}
	l.unpublishLocked(l.cam)
	l.cam = nil
	return nil
}

func (l *localParticipant) SetMicrophoneEnabled(ctx context.Context, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if enabled {
		if l.mic == nil {
			pub, err := l.publishLocked(core.KindAudio, webrtc.RTPCodecCapability{
				MimeType:  webrtc.MimeTypeOpus,
				ClockRate: 48000,
				Channels:  2,
			}, audioSampleInterval)
			if err != nil {
				return err
			}
			l.mic = pub
			return nil
		}
		if err := l.transport.sendEnvelope(envelope{
			Type:     typeMute,
			Kind:     "audio",
			TrackID:  l.mic.track.ID(),
			Identity: string(l.identity),
			Muted:    false,
		}); err != nil {
			return err
		}
		l.mic.source.Resume()
		return nil
	}

	if l.mic == nil {
		return nil
	}
	// Mute pauses the source rather than unpublishing, so unmute
	// needs no renegotiation.
	if err := l.transport.sendEnvelope(envelope{
		Type:     typeMute,
		Kind:     "audio",
		TrackID:  l.mic.track.ID(),
		Identity: string(l.identity),
		Muted:    true,
	}); err != nil {
		return err
	}
	l.mic.source.Pause()
	return nil
}

func (l *localParticipant) PublishData(ctx context.Context, payload []byte, opts core.DataPublishOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// The demo transport carries all data, reliable or not, over the
	// single ordered SCTP channel. Destination filtering happens
	// server side; an empty list means everyone.
	media := l.transport.mediaRef()
	if media == nil {
		return ErrClosed
	}
	return media.SendData(payload)
}

func (l *localParticipant) VideoTracks() []core.Track {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cam == nil {
		return nil
	}
	return []core.Track{l.cam.track}
}

// publishLocked adds a sample track to the peer connection and
// starts its feeding source. Caller holds l.mu.
func (l *localParticipant) publishLocked(kind core.TrackKind, codec webrtc.RTPCodecCapability, interval time.Duration) (*publication, error) {
	mediaConn := l.transport.mediaRef()
	if mediaConn == nil {
		return nil, ErrClosed
	}

	trackID := uuid.NewString()
	sample, sender, err := mediaConn.AddLocalSampleTrack(codec, trackID)
	if err != nil {
		return nil, err
	}

	source := media.NewSampleSource(sample, interval, silencePayload(kind))
	go source.Run()

	track := &localTrack{
		id:     trackID,
		kind:   kind,
		owner:  l.identity,
		source: source,
	}
	pub := &publication{track: track, sender: sender, source: source}

	log.Info().Str("module", "adapters.ws").
		Str("track_id", trackID).
		Str("kind", kind.String()).
		Msg("local track published")
	l.transport.emit(core.LocalTrackPublished{Track: track})
	return pub, nil
}

// unpublishLocked stops the source and removes the sender. Caller
// holds l.mu.
func (l *localParticipant) unpublishLocked(pub *publication) {
	pub.source.Close()
	if mediaConn := l.transport.mediaRef(); mediaConn != nil {
		if err := mediaConn.RemoveTrack(pub.sender); err != nil {
			log.Warn().Err(err).Str("module", "adapters.ws").Str("track_id", pub.track.ID()).Msg("remove track")
		}
	}
}

func (l *localParticipant) stopSources() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cam != nil {
		l.cam.source.Close()
	}
	if l.mic != nil {
		l.mic.source.Close()
	}
}

func silencePayload(kind core.TrackKind) []byte {
	if kind == core.KindVideo {
		// Minimal VP8 payload; enough to keep the publication alive
		// without a capture device.
		return make([]byte, 64)
	}
	return make([]byte, 8)
}
