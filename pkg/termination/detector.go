// Package termination decides whether a dialogue has reached its end marker.
package termination

import (
	"strings"

	"github.com/go-go-golems/conciliate/pkg/transcript"
)

const DefaultMarker = "STOP"

// Detector matches the termination marker at the start of the latest
// responder turn, case-insensitively. It is a pure function of the transcript;
// since turns are never removed, a positive result is permanent.
type Detector struct {
	Marker string
	// StripNumbering ignores a leading "Question #N:" label before matching.
	StripNumbering bool
}

type Option func(*Detector)

func WithMarker(marker string) Option {
	return func(d *Detector) {
		d.Marker = marker
	}
}

func WithStripNumbering(strip bool) Option {
	return func(d *Detector) {
		d.StripNumbering = strip
	}
}

func NewDetector(options ...Option) *Detector {
	ret := &Detector{
		Marker:         DefaultMarker,
		StripNumbering: true,
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// IsTerminated scans responder turns from the most recent one backward and
// stops at the first match. The controller refuses new rounds once a marker
// exists, so in practice only the latest responder turn is ever inspected; a
// multi-turn response with the marker in an earlier turn still counts.
func (d *Detector) IsTerminated(turns []transcript.Turn) bool {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != transcript.RoleResponder {
			continue
		}
		if d.Matches(turns[i].Content) {
			return true
		}
	}
	return false
}

// Matches reports whether a single responder message starts with the marker.
func (d *Detector) Matches(content string) bool {
	marker := strings.TrimSpace(d.Marker)
	if marker == "" {
		return false
	}
	content = strings.TrimSpace(content)
	if d.StripNumbering {
		content = transcript.StripNumbering(content)
	}
	if len(content) < len(marker) {
		return false
	}
	return strings.EqualFold(content[:len(marker)], marker)
}
