package transcript

import (
	"time"
)

// Role identifies which party produced a Turn.
type Role string

const (
	RoleSeeker    Role = "seeker"
	RoleResponder Role = "responder"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSeeker, RoleResponder, RoleSystem:
		return true
	default:
		return false
	}
}

// Origin records whether a turn was typed by a person or produced by automation.
// It is empty for turns returned by the responder.
type Origin string

const (
	OriginHuman     Origin = "human"
	OriginAutomated Origin = "automated"
)

// Metadata keys set by the bundled roles.
const (
	MetaModel      = "model"
	MetaDurationMs = "duration_ms"
	MetaRound      = "round"
)

// Turn is a single entry of the dialogue transcript.
//
// Turns are value types; once appended to a Transcript they are never mutated.
// Index, ID and CreatedAt are assigned by Transcript.Append.
type Turn struct {
	ID        string         `json:"id" yaml:"id"`
	Index     int            `json:"index" yaml:"index"`
	Role      Role           `json:"role" yaml:"role"`
	Content   string         `json:"content" yaml:"content"`
	Origin    Origin         `json:"origin,omitempty" yaml:"origin,omitempty"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func NewSeekerTurn(content string, origin Origin) Turn {
	return Turn{Role: RoleSeeker, Content: content, Origin: origin}
}

func NewResponderTurn(content string) Turn {
	return Turn{Role: RoleResponder, Content: content}
}

func NewSystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: content}
}
