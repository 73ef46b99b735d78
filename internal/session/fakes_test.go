package session

import (
	"context"
	"sync"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

type fakeTrack struct {
	id     string
	kind   core.TrackKind
	origin core.TrackOrigin
	owner  domain.Identity
}

func (t *fakeTrack) ID() string               { return t.id }
func (t *fakeTrack) Kind() core.TrackKind     { return t.kind }
func (t *fakeTrack) Origin() core.TrackOrigin { return t.origin }
func (t *fakeTrack) Owner() domain.Identity   { return t.owner }

// fakeSink records attach/detach order for binding assertions.
type fakeSink struct {
	kind core.TrackKind

	mu      sync.Mutex
	muted   bool
	playErr error
	ops     []string
}

func newFakeSink(kind core.TrackKind) *fakeSink {
	return &fakeSink{kind: kind}
}

func (s *fakeSink) Kind() core.TrackKind { return s.kind }

func (s *fakeSink) Play(t core.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playErr != nil {
		return s.playErr
	}
	s.ops = append(s.ops, "attach:"+t.ID())
	return nil
}

func (s *fakeSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "detach")
}

func (s *fakeSink) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

func (s *fakeSink) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *fakeSink) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ops))
	copy(out, s.ops)
	return out
}

// fakeLocal records publish calls and can be told to fail them.
type fakeLocal struct {
	identity domain.Identity

	mu          sync.Mutex
	camErr      error
	micErr      error
	publishErr  error
	camCalls    []bool
	micCalls    []bool
	published   [][]byte
	videoTracks []core.Track
}

func newFakeLocal(identity domain.Identity) *fakeLocal {
	return &fakeLocal{identity: identity}
}

func (l *fakeLocal) Identity() domain.Identity { return l.identity }

func (l *fakeLocal) SetCameraEnabled(_ context.Context, enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.camCalls = append(l.camCalls, enabled)
	if l.camErr != nil {
		return l.camErr
	}
	if enabled && len(l.videoTracks) == 0 {
		l.videoTracks = append(l.videoTracks, &fakeTrack{
			id:     "local-cam",
			kind:   core.KindVideo,
			origin: core.OriginLocal,
			owner:  l.identity,
		})
	}
	return nil
}

func (l *fakeLocal) SetMicrophoneEnabled(_ context.Context, enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.micCalls = append(l.micCalls, enabled)
	return l.micErr
}

func (l *fakeLocal) PublishData(_ context.Context, payload []byte, _ core.DataPublishOptions) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.publishErr != nil {
		return l.publishErr
	}
	l.published = append(l.published, payload)
	return nil
}

func (l *fakeLocal) VideoTracks() []core.Track {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Track, len(l.videoTracks))
	copy(out, l.videoTracks)
	return out
}

func (l *fakeLocal) CamCalls() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]bool, len(l.camCalls))
	copy(out, l.camCalls)
	return out
}

func (l *fakeLocal) MicCalls() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]bool, len(l.micCalls))
	copy(out, l.micCalls)
	return out
}

func (l *fakeLocal) Published() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.published))
	copy(out, l.published)
	return out
}

// fakeTransport scripts the event stream and roster.
type fakeTransport struct {
	events chan core.Event
	local  *fakeLocal

	mu          sync.Mutex
	roster      []domain.Participant
	connectErr  error
	disconnects int
}

func newFakeTransport(local *fakeLocal) *fakeTransport {
	return &fakeTransport{
		events: make(chan core.Event, 16),
		local:  local,
	}
}

func (t *fakeTransport) Connect(_ context.Context, _, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectErr
}

func (t *fakeTransport) Disconnect() {
	t.mu.Lock()
	t.disconnects++
	t.mu.Unlock()
}

func (t *fakeTransport) Events() <-chan core.Event { return t.events }

func (t *fakeTransport) Local() core.LocalParticipant { return t.local }

func (t *fakeTransport) Roster() []domain.Participant {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Participant, len(t.roster))
	copy(out, t.roster)
	return out
}

func (t *fakeTransport) NumParticipants() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.roster)
}

func (t *fakeTransport) setRoster(ps ...domain.Participant) {
	t.mu.Lock()
	t.roster = ps
	t.mu.Unlock()
}

func (t *fakeTransport) push(ev core.Event) {
	t.events <- ev
}

func (t *fakeTransport) disconnectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disconnects
}

type issuerFunc func(room domain.RoomID, identity domain.Identity, name string, canPublish bool) (string, error)

func (f issuerFunc) IssueCredential(room domain.RoomID, identity domain.Identity, name string, canPublish bool) (string, error) {
	return f(room, identity, name, canPublish)
}

func okIssuer() issuerFunc {
	return func(domain.RoomID, domain.Identity, string, bool) (string, error) {
		return "token", nil
	}
}
