package transcript

import (
	"regexp"
	"strings"
)

var numberedVerdictRe = regexp.MustCompile(`(?i)^Question #\d*: (Yes|No|Stop)`)

var numberingRe = regexp.MustCompile(`(?i)^\s*Question #\d*:\s*`)

// Exchange pairs a seeker question with the responder answer that followed it.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Exchanges folds a transcript into question/answer pairs, the compact
// history handed to the seeker. A responder turn closes the current pair, so a
// greeting before the first question yields a pair with an empty question.
// Numbered verdicts ("Question #3: Yes") are reduced to the bare verdict.
// System turns are skipped.
func Exchanges(turns []Turn) []Exchange {
	ret := []Exchange{}
	item := Exchange{}
	for _, t := range turns {
		switch t.Role {
		case RoleSeeker:
			item.Question = t.Content
		case RoleResponder:
			item.Answer = numberedVerdictRe.ReplaceAllString(t.Content, "$1")
			ret = append(ret, item)
			item = Exchange{}
		case RoleSystem:
		}
	}
	return ret
}

// StripNumbering removes a leading "Question #N:" label from a responder turn.
func StripNumbering(content string) string {
	return strings.TrimSpace(numberingRe.ReplaceAllString(content, ""))
}
