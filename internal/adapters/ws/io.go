package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
)

func (t *Transport) writePump(ctx context.Context) {
	t.mu.RLock()
	conn := t.conn
	send := t.send
	t.mu.RUnlock()

	ticker := time.NewTicker(t.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "adapters.ws").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump ping")
				return
			}
		case data, ok := <-send:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (t *Transport) readPump(ctx context.Context) {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()

	defer func() {
		log.Debug().Str("module", "adapters.ws").Msg("readPump closing")
		t.emit(core.Disconnected{Reason: "signaling socket closed"})
		t.Disconnect()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "adapters.ws").Msg("readPump read error")
				return
			}
			env, err := decodeEnvelope(data)
			if err != nil {
				log.Warn().Err(err).Str("module", "adapters.ws").Msg("bad signaling frame")
				continue
			}
			t.handleEnvelope(env)
		}
	}
}

// writeEnvelope writes synchronously; used during connect before the
// pumps are running.
func (t *Transport) writeEnvelope(env envelope) error {
	t.mu.RLock()
	conn := t.conn
	closed := t.closed
	t.mu.RUnlock()
	if closed || conn == nil {
		return ErrClosed
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// sendEnvelope queues an envelope for the write pump. Backpressure
// is an error so callers with delivery semantics can react.
func (t *Transport) sendEnvelope(env envelope) error {
	t.mu.RLock()
	send := t.send
	closed := t.closed
	t.mu.RUnlock()
	if closed || send == nil {
		return ErrClosed
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// trySendEnvelope is sendEnvelope for fire-and-forget paths; a drop
// is only logged.
func (t *Transport) trySendEnvelope(env envelope) {
	if err := t.sendEnvelope(env); err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Str("type", env.Type).Msg("envelope dropped")
	}
}
