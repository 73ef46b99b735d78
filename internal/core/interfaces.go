package core

import (
	"context"
	"io"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

type TrackKind int

const (
	KindAudio TrackKind = iota
	KindVideo
)

func (k TrackKind) String() string {
	if k == KindVideo {
		return "video"
	}
	return "audio"
}

type TrackOrigin int

const (
	OriginLocal TrackOrigin = iota
	OriginRemote
)

func (o TrackOrigin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

// Track is one audio or video media stream, either published by the
// local participant or subscribed from a remote one.
type Track interface {
	ID() string
	Kind() TrackKind
	Origin() TrackOrigin
	Owner() domain.Identity
}

// Streamer is implemented by tracks whose media payload can be
// copied to a writer. A sink that renders to disk uses this; the
// returned stop func ends the copy without closing the writer.
type Streamer interface {
	StreamTo(w io.Writer) (stop func(), err error)
}

// Sink is a local render target a track can be attached to.
// The sink never owns the track; Stop only detaches.
type Sink interface {
	Kind() TrackKind
	Play(Track) error
	Stop()
	SetMuted(bool)
	Muted() bool
}

// DataPublishOptions control a data-channel send. Empty
// DestinationIdentities means all participants.
type DataPublishOptions struct {
	Reliable              bool
	DestinationIdentities []domain.Identity
}

// LocalParticipant exposes publish controls for this member.
type LocalParticipant interface {
	Identity() domain.Identity
	SetCameraEnabled(ctx context.Context, enabled bool) error
	SetMicrophoneEnabled(ctx context.Context, enabled bool) error
	PublishData(ctx context.Context, payload []byte, opts DataPublishOptions) error
	// VideoTracks returns the currently published local video tracks.
	VideoTracks() []Track
}

// TransportSession abstracts the real-time media/data connection.
// Owned by the adapter; the session controller only drives it.
//
// Events() must be valid before Connect is called so that no early
// event can be missed. The channel is closed once the transport is
// permanently disconnected.
type TransportSession interface {
	Connect(ctx context.Context, url, token string) error
	Disconnect()
	Events() <-chan Event
	Local() LocalParticipant
	// Roster is the authoritative membership snapshot, local included.
	Roster() []domain.Participant
	NumParticipants() int
}
