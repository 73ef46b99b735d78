package media

import (
	"io"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

// SampleSource feeds a local sample track with a synthetic payload
// at a fixed interval, keeping the publication alive without a
// capture device. Pause stops emission without unpublishing, which
// is how a microphone mute is realised.
type SampleSource struct {
	track    *webrtc.TrackLocalStaticSample
	interval time.Duration
	payload  []byte

	mu     sync.Mutex
	paused bool
	taps   map[int]io.Writer
	nextID int

	stop chan struct{}
	once sync.Once
}

func NewSampleSource(track *webrtc.TrackLocalStaticSample, interval time.Duration, payload []byte) *SampleSource {
	return &SampleSource{
		track:    track,
		interval: interval,
		payload:  payload,
		taps:     make(map[int]io.Writer),
		stop:     make(chan struct{}),
	}
}

// Run blocks until Close; callers start it in a goroutine.
func (s *SampleSource) Run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.emit()
		}
	}
}

func (s *SampleSource) emit() {
	s.mu.Lock()
	paused := s.paused
	taps := make([]io.Writer, 0, len(s.taps))
	for _, w := range s.taps {
		taps = append(taps, w)
	}
	s.mu.Unlock()

	if paused {
		return
	}
	if err := s.track.WriteSample(pionmedia.Sample{Data: s.payload, Duration: s.interval}); err != nil {
		log.Debug().Err(err).Str("module", "media").Str("track_id", s.track.ID()).Msg("sample write")
		return
	}
	for _, w := range taps {
		_, _ = w.Write(s.payload)
	}
}

func (s *SampleSource) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *SampleSource) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Tap copies emitted payload to w until the returned func is called.
// Local preview sinks attach through this.
func (s *SampleSource) Tap(w io.Writer) (remove func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.taps[id] = w
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.taps, id)
		s.mu.Unlock()
	}
}

func (s *SampleSource) Close() {
	s.once.Do(func() { close(s.stop) })
}
