package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

type MessageOrigin int

const (
	OriginLocalOptimistic MessageOrigin = iota
	OriginLocalConfirmed
	OriginRemote
)

type DeliveryState int

const (
	DeliveryPending DeliveryState = iota
	DeliverySent
)

// Message is one entry of the in-session chat log. The log is
// append-only in arrival order and discarded with the session.
type Message struct {
	ID             string
	SenderIdentity domain.Identity
	SenderName     string
	Text           string
	SentAt         time.Time
	Origin         MessageOrigin
	Delivery       DeliveryState
}

// wireMessage is the UTF-8 JSON envelope exchanged over the
// reliable data channel.
type wireMessage struct {
	Type           string `json:"type"`
	ID             string `json:"id"`
	SenderName     string `json:"senderName"`
	SenderIdentity string `json:"senderIdentity"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
}

const wireTypeChat = "chat"

// Chat runs the reliable-with-optimistic-echo messaging protocol.
// The local participant is resolved through the transport on every
// send, so a Chat can exist before the transport has connected and
// no inbound payload arriving during connect is ever dropped.
type Chat struct {
	mu            sync.Mutex
	transport     core.TransportSession
	localName     string
	localIdentity domain.Identity
	entries       []Message
	seen          map[string]struct{}
	onAppend      func(Message)
}

func NewChat(transport core.TransportSession, identity domain.Identity, displayName string) *Chat {
	return &Chat{
		transport:     transport,
		localName:     displayName,
		localIdentity: identity,
		seen:          make(map[string]struct{}),
	}
}

// OnAppend registers a notification hook for newly appended
// messages. Must be set before the session connects.
func (c *Chat) OnAppend(fn func(Message)) { c.onAppend = fn }

// Send appends the message optimistically, then attempts a reliable
// delivery to all participants. On transport failure the optimistic
// entry is rolled back and ErrSend returned. Blank text is silently
// dropped.
func (c *Chat) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	local := c.transport.Local()
	if local == nil {
		return fmt.Errorf("%w: transport not connected", ErrSend)
	}

	msg := Message{
		ID:             uuid.NewString(),
		SenderIdentity: c.localIdentity,
		SenderName:     c.localName,
		Text:           text,
		SentAt:         time.Now().UTC(),
		Origin:         OriginLocalOptimistic,
		Delivery:       DeliveryPending,
	}
	payload, err := json.Marshal(wireMessage{
		Type:           wireTypeChat,
		ID:             msg.ID,
		SenderName:     msg.SenderName,
		SenderIdentity: string(msg.SenderIdentity),
		Message:        msg.Text,
		Timestamp:      msg.SentAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode chat message: %w", err)
	}

	c.append(msg)

	if err := local.PublishData(ctx, payload, core.DataPublishOptions{Reliable: true}); err != nil {
		c.remove(msg.ID)
		log.Warn().Err(err).Str("module", "session.chat").Str("id", msg.ID).Msg("send failed, rolled back")
		return fmt.Errorf("%w: %v", ErrSend, err)
	}

	c.markSent(msg.ID)
	return nil
}

// Receive decodes one inbound data payload. Anything that is not a
// well-formed chat envelope is logged and dropped; our own echo and
// already-seen ids are suppressed.
func (c *Chat) Receive(payload []byte) {
	var w wireMessage
	if err := json.Unmarshal(payload, &w); err != nil {
		log.Debug().Err(err).Str("module", "session.chat").Msg("ignoring undecodable payload")
		return
	}
	if w.Type != wireTypeChat {
		log.Debug().Str("module", "session.chat").Str("type", w.Type).Msg("ignoring non-chat payload")
		return
	}
	if domain.Identity(w.SenderIdentity) == c.localIdentity {
		// Already present as the optimistic entry.
		return
	}

	ts, err := time.Parse(time.RFC3339, w.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	c.mu.Lock()
	if _, dup := c.seen[w.ID]; dup {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.append(Message{
		ID:             w.ID,
		SenderIdentity: domain.Identity(w.SenderIdentity),
		SenderName:     w.SenderName,
		Text:           w.Message,
		SentAt:         ts,
		Origin:         OriginRemote,
		Delivery:       DeliverySent,
	})
}

// Messages returns a snapshot of the log in arrival order.
func (c *Chat) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Chat) append(m Message) {
	c.mu.Lock()
	c.entries = append(c.entries, m)
	c.seen[m.ID] = struct{}{}
	fn := c.onAppend
	c.mu.Unlock()
	if fn != nil {
		fn(m)
	}
}

func (c *Chat) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.entries {
		if m.ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
	delete(c.seen, id)
}

func (c *Chat) markSent(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ID == id {
			c.entries[i].Origin = OriginLocalConfirmed
			c.entries[i].Delivery = DeliverySent
			return
		}
	}
}
