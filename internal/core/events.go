package core

import "github.com/Yourgotopyromaniac/livestream-tech/internal/domain"

// Event is the closed set of transport lifecycle notifications.
// Payloads the transport cannot classify arrive as Unknown and are
// logged, never fatal.
type Event interface {
	isEvent()
}

type Connected struct{}

type Disconnected struct {
	Reason string
}

type ParticipantJoined struct {
	Participant domain.Participant
	// Tracks already subscribed for this participant at the time the
	// join notification was observed. Covers subscriptions that
	// completed before the join event.
	Tracks []Track
}

type ParticipantLeft struct {
	Participant domain.Participant
}

type TrackSubscribed struct {
	Track Track
}

type TrackUnsubscribed struct {
	Track Track
}

type TrackMuted struct {
	TrackID string
	Kind    TrackKind
	Owner   domain.Identity
}

type TrackUnmuted struct {
	TrackID string
	Kind    TrackKind
	Owner   domain.Identity
}

type LocalTrackPublished struct {
	Track Track
}

// DataReceived carries one raw data-channel payload. Sender identity
// travels inside the payload itself, the transport does not know it.
type DataReceived struct {
	Payload []byte
}

type Unknown struct {
	Type string
}

func (Connected) isEvent()           {}
func (Disconnected) isEvent()        {}
func (ParticipantJoined) isEvent()   {}
func (ParticipantLeft) isEvent()     {}
func (TrackSubscribed) isEvent()     {}
func (TrackUnsubscribed) isEvent()   {}
func (TrackMuted) isEvent()          {}
func (TrackUnmuted) isEvent()        {}
func (LocalTrackPublished) isEvent() {}
func (DataReceived) isEvent()        {}
func (Unknown) isEvent()             {}
