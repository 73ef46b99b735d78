package ws

import (
	"io"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/media"
)

// remoteTrack wraps a subscribed pion track. The publisher identity
// travels in the stream id.
type remoteTrack struct {
	track *webrtc.TrackRemote
}

func (r *remoteTrack) ID() string { return r.track.ID() }

func (r *remoteTrack) Kind() core.TrackKind {
	if r.track.Kind() == webrtc.RTPCodecTypeVideo {
		return core.KindVideo
	}
	return core.KindAudio
}

func (r *remoteTrack) Origin() core.TrackOrigin { return core.OriginRemote }

func (r *remoteTrack) Owner() domain.Identity {
	return domain.Identity(r.track.StreamID())
}

// StreamTo copies RTP payload to w until stopped or the track ends.
func (r *remoteTrack) StreamTo(w io.Writer) (func(), error) {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			pkt, _, err := r.track.ReadRTP()
			if err != nil {
				return
			}
			if _, err := w.Write(pkt.Payload); err != nil {
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// localTrack wraps a published sample track plus its feeding source.
type localTrack struct {
	id     string
	kind   core.TrackKind
	owner  domain.Identity
	source *media.SampleSource
}

func (l *localTrack) ID() string               { return l.id }
func (l *localTrack) Kind() core.TrackKind     { return l.kind }
func (l *localTrack) Origin() core.TrackOrigin { return core.OriginLocal }
func (l *localTrack) Owner() domain.Identity   { return l.owner }

// StreamTo taps the source so a preview sink can render what is
// being published.
func (l *localTrack) StreamTo(w io.Writer) (func(), error) {
	return l.source.Tap(w), nil
}
