package session

import "errors"

var (
	// ErrConnect means the transport rejected the join. Fatal to the
	// attempt; the session ends in StateFailed.
	ErrConnect = errors.New("transport connect failed")
	// ErrPublish means a camera/microphone publication toggle failed.
	// Non-fatal; the session keeps running.
	ErrPublish = errors.New("media publish failed")
	// ErrSend means a data-channel send failed. Non-fatal; the
	// optimistically appended message is rolled back.
	ErrSend = errors.New("chat send failed")
	// ErrNotConnected is returned for user actions outside the
	// Connected state.
	ErrNotConnected = errors.New("session not connected")
)
