// Package domain contains entity meta-data without logic.
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxIdentityLen    = 36
	MaxDisplayNameLen = 36
)

var (
	ErrNameTooLong = errors.New("display name too long")
	ErrNameEmpty   = errors.New("display name empty")
)

type (
	Identity string
	RoomID   string
)

// Role decides publish grants for a join: a host publishes
// camera and microphone, a viewer only subscribes.
type Role int

const (
	RoleViewer Role = iota
	RoleHost
)

func (r Role) CanPublish() bool { return r == RoleHost }

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "viewer"
}

// Participant is the roster entry for one connected member.
type Participant struct {
	Identity Identity `json:"identity"`
	Name     string   `json:"name"`
	IsLocal  bool     `json:"-"`
}

// NewLocalParticipant mints a fresh identity for one join attempt.
// Identities are never reused across joins.
func NewLocalParticipant(name string) (Participant, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return Participant{}, ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return Participant{}, ErrNameTooLong
	}
	return Participant{
		Identity: Identity(uuid.NewString()),
		Name:     name,
		IsLocal:  true,
	}, nil
}
