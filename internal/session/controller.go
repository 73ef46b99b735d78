// Package session owns the lifecycle of one livestream call: it
// drives the transport, fans lifecycle events out to track binding,
// presence, chat and mute control, and tears everything down on any
// exit path.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// CredentialIssuer produces a signed join token for one participant.
type CredentialIssuer interface {
	IssueCredential(room domain.RoomID, identity domain.Identity, displayName string, canPublish bool) (string, error)
}

// Options configure one session instance.
type Options struct {
	Room        domain.RoomID
	Role        domain.Role
	DisplayName string
	ServerURL   string

	// Render sinks. Either may be nil; tracks arriving with no sink
	// mounted are dropped.
	VideoSink core.Sink
	AudioSink core.Sink

	// OnWarning receives non-fatal errors (publish failures, rolled
	// back sends). Defaults to logging.
	OnWarning func(error)
	// OnChatMessage is notified for every appended chat entry.
	OnChatMessage func(Message)
}

// Controller is the state machine for one call lifetime. One
// controller owns one session; to rejoin, construct a new one.
type Controller struct {
	opts      Options
	issuer    CredentialIssuer
	transport core.TransportSession

	mu       sync.Mutex
	state    State
	identity domain.Identity

	binder   *Binder
	presence *Presence
	chat     *Chat
	mute     *MuteControl

	done      chan struct{}
	closeOnce sync.Once
}

func NewController(opts Options, issuer CredentialIssuer, transport core.TransportSession) *Controller {
	return &Controller{
		opts:      opts,
		issuer:    issuer,
		transport: transport,
		state:     StateIdle,
		binder:    NewBinder(opts.VideoSink, opts.AudioSink),
		presence:  NewPresence(transport),
		done:      make(chan struct{}),
	}
}

// Join runs Idle -> Connecting -> Connected. The event loop starts
// before the transport connect is issued so no early event can be
// dropped. A host additionally requests camera and microphone
// publication; failure there is a warning, the stream proceeds
// without media.
func (c *Controller) Join(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		s := c.state
		c.mu.Unlock()
		return fmt.Errorf("join from state %s", s)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	local, err := domain.NewLocalParticipant(c.opts.DisplayName)
	if err != nil {
		c.setState(StateFailed)
		return fmt.Errorf("local participant: %w", err)
	}
	c.mu.Lock()
	c.identity = local.Identity
	c.mu.Unlock()

	token, err := c.issuer.IssueCredential(c.opts.Room, local.Identity, local.Name, c.opts.Role.CanPublish())
	if err != nil {
		c.setState(StateFailed)
		return fmt.Errorf("issue credential: %w", err)
	}

	// The chat log must exist before the event loop starts: the
	// transport can deliver data payloads while Connect is still in
	// flight, and those must land in the log, not be dropped.
	chat := NewChat(c.transport, local.Identity, local.Name)
	if c.opts.OnChatMessage != nil {
		chat.OnAppend(c.opts.OnChatMessage)
	}
	c.mu.Lock()
	c.chat = chat
	c.mu.Unlock()

	go c.run()

	if err := c.transport.Connect(ctx, c.opts.ServerURL, token); err != nil {
		c.setState(StateFailed)
		c.teardown()
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	c.mu.Lock()
	c.mute = NewMuteControl(c.transport.Local())
	c.state = StateConnected
	c.mu.Unlock()

	log.Info().Str("module", "session").
		Str("room", string(c.opts.Room)).
		Str("identity", string(local.Identity)).
		Str("role", c.opts.Role.String()).
		Msg("connected")

	if c.opts.Role.CanPublish() {
		c.publishLocalMedia(ctx)
	}
	return nil
}

// Close tears the session down: stop the event loop, detach every
// binding, disconnect the transport. Idempotent; an unmount racing a
// disconnect event must not double-detach.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.binder.DetachAll()
		c.transport.Disconnect()
		c.mu.Lock()
		if c.state != StateFailed {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		log.Info().Str("module", "session").Msg("session closed")
	})
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) LocalIdentity() domain.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *Controller) ParticipantCount() int { return c.presence.Count() }

func (c *Controller) Roster() []domain.Participant { return c.presence.Roster() }

// Messages returns the chat log snapshot in arrival order.
func (c *Controller) Messages() []Message {
	if chat := c.chatRef(); chat != nil {
		return chat.Messages()
	}
	return nil
}

// SendMessage runs the optimistic-echo send protocol.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	chat := c.chatRef()
	if chat == nil || c.State() != StateConnected {
		return ErrNotConnected
	}
	return chat.Send(ctx, text)
}

// ToggleMute flips the local microphone publication.
func (c *Controller) ToggleMute(ctx context.Context) (bool, error) {
	c.mu.Lock()
	mute := c.mute
	state := c.state
	c.mu.Unlock()
	if mute == nil || state != StateConnected {
		return false, ErrNotConnected
	}
	return mute.Toggle(ctx)
}

func (c *Controller) Muted() bool {
	c.mu.Lock()
	mute := c.mute
	c.mu.Unlock()
	if mute == nil {
		return false
	}
	return mute.Muted()
}

func (c *Controller) run() {
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.transport.Events():
			if !ok {
				c.handleDisconnect("event stream closed")
				return
			}
			c.handleEvent(ev)
		}
	}
}

func (c *Controller) handleEvent(ev core.Event) {
	switch ev := ev.(type) {
	case core.Connected:
		c.presence.Refresh()
	case core.Disconnected:
		c.handleDisconnect(ev.Reason)
	case core.ParticipantJoined:
		c.presence.Refresh()
		// Bind tracks whose subscription completed before the join
		// notification was observed.
		for _, t := range ev.Tracks {
			c.binder.Bind(t)
		}
		log.Info().Str("module", "session").Str("identity", string(ev.Participant.Identity)).Msg("participant joined")
	case core.ParticipantLeft:
		c.presence.Refresh()
		c.binder.UnbindOwner(ev.Participant.Identity)
		log.Info().Str("module", "session").Str("identity", string(ev.Participant.Identity)).Msg("participant left")
	case core.TrackSubscribed:
		c.binder.Bind(ev.Track)
	case core.TrackUnsubscribed:
		c.binder.Unbind(ev.Track.ID())
	case core.TrackMuted:
		c.gateRemoteAudio(ev.Owner, ev.Kind, true)
	case core.TrackUnmuted:
		c.gateRemoteAudio(ev.Owner, ev.Kind, false)
	case core.LocalTrackPublished:
		if ev.Track.Kind() == core.KindVideo {
			// Host preview; Bind detaches any prior video binding.
			c.binder.Bind(ev.Track)
		}
	case core.DataReceived:
		if chat := c.chatRef(); chat != nil {
			chat.Receive(ev.Payload)
		}
	case core.Unknown:
		log.Debug().Str("module", "session").Str("type", ev.Type).Msg("ignoring unknown event")
	}
}

// gateRemoteAudio mutes local playback when a remote audio track is
// muted at the source. Publications are never touched from here.
func (c *Controller) gateRemoteAudio(owner domain.Identity, kind core.TrackKind, muted bool) {
	if kind != core.KindAudio || owner == c.LocalIdentity() {
		return
	}
	c.binder.GatePlayback(muted)
}

func (c *Controller) handleDisconnect(reason string) {
	log.Info().Str("module", "session").Str("reason", reason).Msg("transport disconnected")
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.state = StateDisconnected
	}
	c.mu.Unlock()
	c.teardown()
}

// teardown is Close without forcing the state, used on paths that
// already decided it (Failed, Disconnected).
func (c *Controller) teardown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.binder.DetachAll()
		c.transport.Disconnect()
	})
}

func (c *Controller) publishLocalMedia(ctx context.Context) {
	local := c.transport.Local()
	if err := local.SetCameraEnabled(ctx, true); err != nil {
		c.warn(fmt.Errorf("%w: camera: %v", ErrPublish, err))
	}
	if err := local.SetMicrophoneEnabled(ctx, true); err != nil {
		c.warn(fmt.Errorf("%w: microphone: %v", ErrPublish, err))
	}
	for _, t := range local.VideoTracks() {
		c.binder.Bind(t)
		break
	}
}

func (c *Controller) chatRef() *Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chat
}

func (c *Controller) warn(err error) {
	if c.opts.OnWarning != nil {
		c.opts.OnWarning(err)
		return
	}
	log.Warn().Err(err).Str("module", "session").Msg("non-fatal")
}
