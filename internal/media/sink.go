// Package media provides headless render sinks. A sink never owns
// the track it plays; Stop only detaches.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
)

var ErrNotStreamable = errors.New("track does not expose media payload")

// FileSink renders a track's payload to a file under dir, one file
// per attached track. SetMuted gates writing without detaching.
type FileSink struct {
	kind core.TrackKind
	dir  string

	mu    sync.Mutex
	muted bool
	stop  func()
	file  *os.File
}

func NewFileSink(kind core.TrackKind, dir string) *FileSink {
	return &FileSink{kind: kind, dir: dir}
}

func (s *FileSink) Kind() core.TrackKind { return s.kind }

func (s *FileSink) Play(t core.Track) error {
	streamer, ok := t.(core.Streamer)
	if !ok {
		return ErrNotStreamable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	name := fmt.Sprintf("%s_%s.raw", t.ID(), t.Kind())
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("open sink file: %w", err)
	}
	stop, err := streamer.StreamTo(&gatedWriter{sink: s, w: f})
	if err != nil {
		_ = f.Close()
		return err
	}
	s.file = f
	s.stop = stop
	log.Debug().Str("module", "media").Str("file", name).Msg("sink playing")
	return nil
}

func (s *FileSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *FileSink) stopLocked() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
}

func (s *FileSink) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

func (s *FileSink) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// gatedWriter drops payload while the sink is muted.
type gatedWriter struct {
	sink *FileSink
	w    io.Writer
}

func (g *gatedWriter) Write(p []byte) (int, error) {
	if g.sink.Muted() {
		return len(p), nil
	}
	return g.w.Write(p)
}

// NullSink discards payload but keeps full attach/detach and mute
// semantics. Used when no media directory is configured.
type NullSink struct {
	kind core.TrackKind

	mu    sync.Mutex
	muted bool
	stop  func()
}

func NewNullSink(kind core.TrackKind) *NullSink {
	return &NullSink{kind: kind}
}

func (s *NullSink) Kind() core.TrackKind { return s.kind }

func (s *NullSink) Play(t core.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	if streamer, ok := t.(core.Streamer); ok {
		stop, err := streamer.StreamTo(io.Discard)
		if err != nil {
			return err
		}
		s.stop = stop
	}
	return nil
}

func (s *NullSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

func (s *NullSink) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

func (s *NullSink) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}
