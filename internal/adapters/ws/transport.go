// Package ws implements the transport session over a websocket
// signaling channel plus a pion peer connection. Media subscription,
// publication and the reliable chat data channel all hang off the
// single peer connection; roster state mirrors the server's room
// envelopes.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/adapters/rtc"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/auth"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

var (
	ErrClosed       = errors.New("transport closed")
	ErrJoinReject   = errors.New("join rejected")
	ErrBackpressure = errors.New("backpressure")
)

const (
	eventBuffer   = 64
	sendBuffer    = 32
	writeDeadline = 5 * time.Second
)

// Options tune the socket; zero values fall back to defaults.
type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadLimit == 0 {
		o.ReadLimit = 32768
	}
	if o.PingPeriod == 0 {
		o.PingPeriod = 54 * time.Second
	}
	return o
}

// Transport implements core.TransportSession for the bundled
// signaling protocol.
type Transport struct {
	opts   Options
	events chan core.Event

	mu       sync.RWMutex
	conn     *websocket.Conn
	send     chan []byte
	media    *rtc.Connection
	local    *localParticipant
	roster   map[domain.Identity]domain.Participant
	tracks   map[string]core.Track
	closed   bool
	room     domain.RoomID
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewTransport(opts Options) *Transport {
	return &Transport{
		opts:   opts.withDefaults(),
		events: make(chan core.Event, eventBuffer),
		roster: make(map[domain.Identity]domain.Participant),
		tracks: make(map[string]core.Track),
	}
}

func (t *Transport) Events() <-chan core.Event { return t.events }

// Connect dials the signaling socket with the token, waits for the
// server's room_state ack, sets up the peer connection and starts
// the socket pumps. The event channel is live before Connect is
// called, so nothing emitted here can be lost.
func (t *Transport) Connect(ctx context.Context, url, token string) error {
	verifier, err := auth.ParseToken(token)
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	grants, err := verifier.UnverifiedGrants()
	if err != nil {
		return fmt.Errorf("token grants: %w", err)
	}
	if grants.Video == nil || !grants.Video.RoomJoin {
		return fmt.Errorf("%w: token lacks room join grant", ErrJoinReject)
	}
	identity := domain.Identity(verifier.Identity())

	header := make(http.Header)
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url+"/rtc", header)
	if err != nil {
		return fmt.Errorf("dial signaling: %w", err)
	}
	conn.SetReadLimit(t.opts.ReadLimit)

	mediaConn, err := rtc.NewConnection(rtc.DefaultConfig(), string(identity))
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("peer connection: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.conn = conn
	t.send = make(chan []byte, sendBuffer)
	t.media = mediaConn
	t.cancel = cancel
	t.room = domain.RoomID(grants.Video.Room)
	t.local = &localParticipant{
		transport: t,
		identity:  identity,
		name:      grants.Name,
	}
	t.mu.Unlock()

	t.wireMedia(runCtx, mediaConn)
	if err := mediaConn.Start(runCtx); err != nil {
		t.Disconnect()
		return fmt.Errorf("start media: %w", err)
	}

	if err := t.writeEnvelope(envelope{Type: typeJoin, Room: string(t.room)}); err != nil {
		t.Disconnect()
		return err
	}

	// The join ack is read synchronously so a rejected join surfaces
	// as a connect error, not a late event.
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Disconnect()
		return fmt.Errorf("join ack: %w", err)
	}
	env, err := decodeEnvelope(data)
	if err != nil {
		t.Disconnect()
		return fmt.Errorf("join ack: %w", err)
	}
	switch env.Type {
	case typeRoomState:
		t.applyRoomState(env)
	case typeError:
		t.Disconnect()
		return fmt.Errorf("%w: %s", ErrJoinReject, env.Error)
	default:
		t.Disconnect()
		return fmt.Errorf("%w: unexpected ack %q", ErrJoinReject, env.Type)
	}

	go t.writePump(runCtx)
	go t.readPump(runCtx)

	t.emit(core.Connected{})
	log.Info().Str("module", "adapters.ws").Str("identity", string(identity)).Str("room", string(t.room)).Msg("transport connected")
	return nil
}

// Disconnect is idempotent: closes the socket, the peer connection,
// and the event channel.
func (t *Transport) Disconnect() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		conn := t.conn
		media := t.media
		cancel := t.cancel
		local := t.local
		t.mu.Unlock()

		if local != nil {
			local.stopSources()
		}
		if cancel != nil {
			cancel()
		}
		if conn != nil {
			_ = conn.Close()
		}
		if media != nil {
			media.Close()
		}
		close(t.events)
		log.Info().Str("module", "adapters.ws").Msg("transport disconnected")
	})
}

// Local is nil until Connect has set up the participant.
func (t *Transport) Local() core.LocalParticipant {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.local == nil {
		return nil
	}
	return t.local
}

func (t *Transport) Roster() []domain.Participant {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Participant, 0, len(t.roster))
	for _, p := range t.roster {
		out = append(out, p)
	}
	return out
}

func (t *Transport) NumParticipants() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.roster)
}

func (t *Transport) wireMedia(ctx context.Context, media *rtc.Connection) {
	media.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		t.trySendEnvelope(envelope{Type: typeCandidate, Candidate: &ci})
	})
	media.OnTrack(func(_ context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		rt := &remoteTrack{track: track}
		t.mu.Lock()
		t.tracks[rt.ID()] = rt
		t.mu.Unlock()
		t.emit(core.TrackSubscribed{Track: rt})
	})
	media.OnData(func(payload []byte) {
		t.emit(core.DataReceived{Payload: payload})
	})
	media.OnNegotiationNeeded(func() {
		offer, err := t.mediaRef().CreateAndSetOffer()
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("create offer")
			return
		}
		t.trySendEnvelope(envelope{Type: typeOffer, SDP: offer.SDP})
	})
	media.OnClosed(func() {
		select {
		case <-ctx.Done():
			// Teardown already in progress.
		default:
			t.emit(core.Disconnected{Reason: "media connection closed"})
			t.Disconnect()
		}
	})
}

// handleEnvelope dispatches one inbound signaling frame. Unknown
// types surface as core.Unknown and are only logged downstream.
func (t *Transport) handleEnvelope(env envelope) {
	switch env.Type {
	case typeRoomState:
		t.applyRoomState(env)
	case typeMemberJoined:
		if env.Participant == nil {
			return
		}
		p := env.Participant.toDomain(t.localIdentity())
		t.mu.Lock()
		t.roster[p.Identity] = p
		existing := t.tracksOfLocked(p.Identity)
		t.mu.Unlock()
		t.emit(core.ParticipantJoined{Participant: p, Tracks: existing})
	case typeMemberLeft:
		if env.Participant == nil {
			return
		}
		p := env.Participant.toDomain(t.localIdentity())
		t.mu.Lock()
		delete(t.roster, p.Identity)
		gone := t.tracksOfLocked(p.Identity)
		for _, tr := range gone {
			delete(t.tracks, tr.ID())
		}
		t.mu.Unlock()
		for _, tr := range gone {
			t.emit(core.TrackUnsubscribed{Track: tr})
		}
		t.emit(core.ParticipantLeft{Participant: p})
	case typeTrackRemoved:
		t.mu.Lock()
		tr, ok := t.tracks[env.TrackID]
		delete(t.tracks, env.TrackID)
		t.mu.Unlock()
		if ok {
			t.emit(core.TrackUnsubscribed{Track: tr})
		}
	case typeOffer:
		answer, err := t.mediaRef().ApplyOfferAndCreateAnswer(webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  env.SDP,
		})
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("apply offer")
			return
		}
		t.trySendEnvelope(envelope{Type: typeAnswer, SDP: answer.SDP})
	case typeAnswer:
		if err := t.mediaRef().ApplyAnswer(webrtc.SessionDescription{
			Type: webrtc.SDPTypeAnswer,
			SDP:  env.SDP,
		}); err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("apply answer")
		}
	case typeCandidate:
		if env.Candidate == nil {
			return
		}
		if err := t.mediaRef().AddICECandidate(*env.Candidate); err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("add candidate")
		}
	case typeMute:
		kind := core.KindAudio
		if env.Kind == "video" {
			kind = core.KindVideo
		}
		if env.Muted {
			t.emit(core.TrackMuted{TrackID: env.TrackID, Kind: kind, Owner: domain.Identity(env.Identity)})
		} else {
			t.emit(core.TrackUnmuted{TrackID: env.TrackID, Kind: kind, Owner: domain.Identity(env.Identity)})
		}
	case typePing:
		t.trySendEnvelope(envelope{Type: typePong})
	case typePong:
		// Keepalive reply, nothing to do.
	case typeError:
		log.Warn().Str("module", "adapters.ws").Str("error", env.Error).Msg("server error envelope")
	default:
		t.emit(core.Unknown{Type: env.Type})
	}
}

func (t *Transport) applyRoomState(env envelope) {
	local := t.localIdentity()
	t.mu.Lock()
	t.roster = make(map[domain.Identity]domain.Participant, len(env.Participants))
	for _, pi := range env.Participants {
		p := pi.toDomain(local)
		t.roster[p.Identity] = p
	}
	t.mu.Unlock()
}

// tracksOfLocked returns subscribed tracks owned by identity.
// Caller holds t.mu.
func (t *Transport) tracksOfLocked(owner domain.Identity) []core.Track {
	var out []core.Track
	for _, tr := range t.tracks {
		if tr.Owner() == owner {
			out = append(out, tr)
		}
	}
	return out
}

// emit never blocks: if the consumer stopped draining, the event is
// dropped and logged rather than wedging the socket pumps.
func (t *Transport) emit(ev core.Event) {
	// The read lock is held across the send so Disconnect cannot
	// close the channel mid-emit.
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.events <- ev:
	default:
		log.Warn().Str("module", "adapters.ws").Msg("event buffer full, dropping")
	}
}

func (t *Transport) localIdentity() domain.Identity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.local == nil {
		return ""
	}
	return t.local.identity
}

func (t *Transport) mediaRef() *rtc.Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.media
}
