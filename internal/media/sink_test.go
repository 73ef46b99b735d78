package media

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

// stubTrack streams a fixed payload synchronously on attach.
type stubTrack struct {
	id      string
	kind    core.TrackKind
	payload []byte
	stopped bool
}

func (t *stubTrack) ID() string                { return t.id }
func (t *stubTrack) Kind() core.TrackKind      { return t.kind }
func (t *stubTrack) Origin() core.TrackOrigin  { return core.OriginRemote }
func (t *stubTrack) Owner() domain.Identity    { return "remote" }
func (t *stubTrack) StreamTo(w io.Writer) (func(), error) {
	if _, err := w.Write(t.payload); err != nil {
		return nil, err
	}
	return func() { t.stopped = true }, nil
}

// bareTrack has no payload stream at all.
type bareTrack struct{}

func (bareTrack) ID() string               { return "bare" }
func (bareTrack) Kind() core.TrackKind     { return core.KindVideo }
func (bareTrack) Origin() core.TrackOrigin { return core.OriginRemote }
func (bareTrack) Owner() domain.Identity   { return "remote" }

func TestFileSinkWritesPayload(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(core.KindVideo, dir)

	track := &stubTrack{id: "t1", kind: core.KindVideo, payload: []byte("frame")}
	require.NoError(t, sink.Play(track))
	sink.Stop()
	assert.True(t, track.stopped)

	data, err := os.ReadFile(filepath.Join(dir, "t1_video.raw"))
	require.NoError(t, err)
	assert.Equal(t, []byte("frame"), data)
}

func TestFileSinkMuteGatesWriting(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(core.KindAudio, dir)
	sink.SetMuted(true)

	track := &stubTrack{id: "t2", kind: core.KindAudio, payload: []byte("sample")}
	require.NoError(t, sink.Play(track))
	sink.Stop()

	data, err := os.ReadFile(filepath.Join(dir, "t2_audio.raw"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFileSinkRejectsBareTrack(t *testing.T) {
	sink := NewFileSink(core.KindVideo, t.TempDir())
	assert.ErrorIs(t, sink.Play(bareTrack{}), ErrNotStreamable)
}

func TestFileSinkReplacesPriorTrack(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(core.KindVideo, dir)

	first := &stubTrack{id: "a", kind: core.KindVideo, payload: []byte("x")}
	second := &stubTrack{id: "b", kind: core.KindVideo, payload: []byte("y")}
	require.NoError(t, sink.Play(first))
	require.NoError(t, sink.Play(second))
	assert.True(t, first.stopped)
	assert.False(t, second.stopped)
	sink.Stop()
}

func TestNullSink(t *testing.T) {
	sink := NewNullSink(core.KindAudio)
	track := &stubTrack{id: "t3", kind: core.KindAudio, payload: []byte("s")}
	require.NoError(t, sink.Play(track))

	// Bare tracks are fine here, there is nothing to render.
	require.NoError(t, sink.Play(bareTrack{}))
	assert.True(t, track.stopped)

	sink.SetMuted(true)
	assert.True(t, sink.Muted())
	sink.Stop()
}
