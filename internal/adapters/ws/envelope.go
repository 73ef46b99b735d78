package ws

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

// envelope is the JSON frame exchanged on the signaling socket.
// Only the fields relevant to a given Type are populated.
type envelope struct {
	Type string `json:"type"`

	Room         string            `json:"room,omitempty"`
	Participant  *participantInfo  `json:"participant,omitempty"`
	Participants []participantInfo `json:"participants,omitempty"`
	Count        int               `json:"count,omitempty"`

	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`

	Kind     string `json:"kind,omitempty"`
	TrackID  string `json:"track_id,omitempty"`
	Identity string `json:"identity,omitempty"`
	Muted    bool   `json:"muted,omitempty"`

	Error string `json:"error,omitempty"`
}

const (
	typeJoin         = "join"
	typeRoomState    = "room_state"
	typeMemberJoined = "member_joined"
	typeMemberLeft   = "member_left"
	typeOffer        = "offer"
	typeAnswer       = "answer"
	typeCandidate    = "candidate"
	typeMute         = "mute"
	typeTrackRemoved = "track_removed"
	typePing         = "ping"
	typePong         = "pong"
	typeError        = "error"
)

type participantInfo struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
}

func (p participantInfo) toDomain(local domain.Identity) domain.Participant {
	return domain.Participant{
		Identity: domain.Identity(p.Identity),
		Name:     p.Name,
		IsLocal:  domain.Identity(p.Identity) == local,
	}
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
