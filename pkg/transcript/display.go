package transcript

import (
	"regexp"
	"strings"
)

// DisplayKind classifies how a renderer should present a turn.
type DisplayKind string

const (
	DisplayPlain   DisplayKind = "plain"
	DisplayVerdict DisplayKind = "verdict"
	DisplayClosing DisplayKind = "closing"
	DisplayLimit   DisplayKind = "limit"
)

const (
	ClosingText = "Thank you for your chat. My job as conciliator is to ensure that you have enough " +
		"information to gauge your level of interest in this project, and you have reached that point. " +
		"We look forward to your bid for this IP."
	LimitText = "The question limit for this session has been reached."
)

var (
	ratedVerdictRe = regexp.MustCompile(`(?i)^(Yes|No|STOP),(\d+)$`)
	limitRe        = regexp.MustCompile(`(?i)^(None),\d*`)
)

// DisplayTurn is the presentation form of a Turn. Nothing here feeds back into
// the dialogue protocol; it only decides what a transcript view shows.
type DisplayTurn struct {
	Turn   Turn        `json:"turn"`
	Kind   DisplayKind `json:"kind"`
	Text   string      `json:"text"`
	Answer string      `json:"answer,omitempty"`
	Rating string      `json:"rating,omitempty"`
}

// Display computes the presentation of a turn. Responder turns of the form
// "Yes,7" become verdicts with a rating; a STOP verdict is replaced by the
// closing text and the "None,N" question-limit sentinel by LimitText.
func Display(t Turn) DisplayTurn {
	ret := DisplayTurn{Turn: t, Kind: DisplayPlain, Text: t.Content}
	if t.Role != RoleResponder {
		return ret
	}

	content := strings.TrimSpace(t.Content)
	if limitRe.MatchString(content) {
		ret.Kind = DisplayLimit
		ret.Text = LimitText
		return ret
	}

	m := ratedVerdictRe.FindStringSubmatch(content)
	if m == nil {
		return ret
	}
	ret.Answer = m[1]
	ret.Rating = m[2]
	if strings.EqualFold(m[1], "stop") {
		ret.Kind = DisplayClosing
		ret.Text = ClosingText
		return ret
	}
	ret.Kind = DisplayVerdict
	ret.Text = m[1]
	return ret
}

// IsQuestionLimit reports whether content is the question-limit sentinel.
func IsQuestionLimit(content string) bool {
	return limitRe.MatchString(strings.TrimSpace(content))
}
