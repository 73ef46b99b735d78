// Package rtc wraps the pion peer connection used for media and the
// reliable chat data channel.
package rtc

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const reliableDataChannel = "_reliable"

var ErrDataChannelNotOpen = errors.New("reliable data channel not open")

type Connection struct {
	pc       *webrtc.PeerConnection
	identity string
	cancel   context.CancelFunc

	onICE       func(webrtc.ICECandidateInit)
	onTrack     func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onClosed    func()
	onData      func([]byte)
	onNegotiate func()

	// dcMu guards reliableDC: the server-offered channel arrives on
	// a pion callback goroutine while SendData runs on the caller's.
	dcMu       sync.Mutex
	reliableDC *webrtc.DataChannel
}

func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

func NewConnection(cfg webrtc.Configuration, identity string) (*Connection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &Connection{pc: pc, identity: identity}, nil
}

// Start configures internal callbacks and binds the connection
// lifetime to ctx. It also opens the reliable data channel; creating
// it here triggers the first negotiation.
func (c *Connection) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("identity", c.identity).Str("ice_state", s.String()).Msg("ICE state")
		if s == webrtc.ICEConnectionStateDisconnected ||
			s == webrtc.ICEConnectionStateFailed ||
			s == webrtc.ICEConnectionStateClosed {
			cancel()
		}
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("identity", c.identity).Str("peer_state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			if c.onClosed != nil {
				c.onClosed()
			}
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && c.onICE != nil {
			c.onICE(cand.ToJSON())
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("identity", c.identity).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("remote track")
		if c.onTrack != nil {
			c.onTrack(ctx, track, receiver)
		}
	})

	c.pc.OnNegotiationNeeded(func() {
		if c.onNegotiate != nil {
			c.onNegotiate()
		}
	})

	c.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() == reliableDataChannel {
			c.wireDataChannel(dc)
		}
	})

	dc, err := c.pc.CreateDataChannel(reliableDataChannel, nil)
	if err != nil {
		return err
	}
	c.wireDataChannel(dc)
	return nil
}

func (c *Connection) wireDataChannel(dc *webrtc.DataChannel) {
	c.dcMu.Lock()
	c.reliableDC = dc
	c.dcMu.Unlock()
	dc.OnOpen(func() {
		log.Info().Str("module", "rtc").Str("identity", c.identity).Str("label", dc.Label()).Msg("data channel open")
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if c.onData != nil {
			c.onData(msg.Data)
		}
	})
}

// SendData writes one payload to the reliable data channel.
func (c *Connection) SendData(payload []byte) error {
	c.dcMu.Lock()
	dc := c.reliableDC
	c.dcMu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrDataChannelNotOpen
	}
	return dc.Send(payload)
}

func (c *Connection) ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}

	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	<-gatherComplete

	return c.pc.LocalDescription(), nil
}

func (c *Connection) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return c.pc.LocalDescription(), nil
}

func (c *Connection) ApplyAnswer(answer webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(answer)
}

func (c *Connection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

// AddLocalSampleTrack publishes a local sample track for the given
// codec. Stream id carries the publisher identity so subscribers can
// attribute the track.
func (c *Connection) AddLocalSampleTrack(codec webrtc.RTPCodecCapability, trackID string) (*webrtc.TrackLocalStaticSample, *webrtc.RTPSender, error) {
	track, err := webrtc.NewTrackLocalStaticSample(codec, trackID, c.identity)
	if err != nil {
		return nil, nil, err
	}
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return nil, nil, err
	}
	return track, sender, nil
}

func (c *Connection) RemoveTrack(sender *webrtc.RTPSender) error {
	return c.pc.RemoveTrack(sender)
}

// OnICECandidate sets a callback for newly gathered local candidates.
func (c *Connection) OnICECandidate(fn func(webrtc.ICECandidateInit)) { c.onICE = fn }

// OnTrack sets the application-level callback for remote tracks.
func (c *Connection) OnTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	c.onTrack = fn
}

// OnClosed sets a callback for media session cleanup.
func (c *Connection) OnClosed(fn func()) { c.onClosed = fn }

// OnData sets the callback for inbound data-channel payloads.
func (c *Connection) OnData(fn func([]byte)) { c.onData = fn }

// OnNegotiationNeeded sets the callback fired when local changes
// require a new offer.
func (c *Connection) OnNegotiationNeeded(fn func()) { c.onNegotiate = fn }

func (c *Connection) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.pc != nil {
		if err := c.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "rtc").Str("identity", c.identity).Msg("close error")
		} else {
			log.Info().Str("module", "rtc").Str("identity", c.identity).Msg("closed")
		}
	}
}
