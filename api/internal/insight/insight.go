// Package insight bands an evaluation for review and rewrites it for the
// people who read it. Confidence values are model self-reports, so the bands
// only order results; they are not probabilities.
package insight

import (
	"fmt"
	"strings"
	"time"

	"eduvane/api/internal/types"
)

type ReviewStatus string

const (
	StatusValidated     ReviewStatus = "VALIDATED"
	StatusPendingReview ReviewStatus = "PENDING_REVIEW"
	StatusReleased      ReviewStatus = "RELEASED"
)

type ImpactLevel string

const (
	ImpactHigh  ImpactLevel = "HIGH"
	ImpactAmber ImpactLevel = "AMBER"
	ImpactLow   ImpactLevel = "LOW"
)

const (
	ValidatedFrom = 0.85
	HighBelow     = 0.70
)

// Status decides whether an educator has to look at a result first.
// Standalone learners have no educator, so their results are released as is.
func Status(confidence float64, mode types.Mode) ReviewStatus {
	if mode == types.ModeStandalone {
		return StatusReleased
	}
	if confidence >= ValidatedFrom {
		return StatusValidated
	}
	return StatusPendingReview
}

func Impact(confidence float64) ImpactLevel {
	switch {
	case confidence < HighBelow:
		return ImpactHigh
	case confidence < ValidatedFrom:
		return ImpactAmber
	default:
		return ImpactLow
	}
}

type Insight struct {
	SubmissionID string       `json:"submissionId"`
	UserID       string       `json:"userId"`
	Timestamp    time.Time    `json:"timestamp"`
	Subject      string       `json:"subject"`
	Topic        string       `json:"topic"`
	Score        float64      `json:"score"`
	Confidence   float64      `json:"confidenceScore"`
	Status       ReviewStatus `json:"status"`
	Impact       ImpactLevel  `json:"impactLevel"`
	Mode         types.Mode   `json:"mode"`
	Observation  string       `json:"observation"`
	NextStep     string       `json:"nextStep"`
}

func FromSubmission(s types.Submission, mode types.Mode) Insight {
	if mode == "" {
		mode = types.ModeInstitutional
	}
	in := Insight{
		SubmissionID: s.ID,
		UserID:       s.UserID,
		Timestamp:    s.Timestamp,
		Subject:      s.Subject,
		Topic:        s.Topic,
		Score:        s.Score,
		Confidence:   s.ConfidenceScore,
		Status:       Status(s.ConfidenceScore, mode),
		Impact:       Impact(s.ConfidenceScore),
		Mode:         mode,
		Observation:  s.Feedback,
	}
	if len(s.ImprovementSteps) > 0 {
		in.NextStep = s.ImprovementSteps[0]
	}
	return in
}

type Audience string

const (
	AudienceEducator Audience = "EDUCATOR"
	AudienceFamily   Audience = "FAMILY"
	AudienceLearner  Audience = "LEARNER"
)

var Audiences = []Audience{AudienceEducator, AudienceFamily, AudienceLearner}

func ParseAudience(s string) (Audience, error) {
	a := Audience(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range Audiences {
		if a == v {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown audience %q", s)
}

// Translated is one insight told for one audience.
type Translated struct {
	Audience   Audience `json:"audience"`
	Headline   string   `json:"headline"`
	Narrative  string   `json:"narrative"`
	ActionStep string   `json:"actionableStep"`
}

func Translate(in Insight, a Audience) Translated {
	topic := in.Topic
	if topic == "" || topic == types.DefaultTopic {
		topic = in.Subject
	}
	step := in.NextStep
	if step == "" {
		step = "Revisit the last piece of work together."
	}

	switch a {
	case AudienceEducator:
		headline := "Progress signal: " + in.Subject
		if in.Impact == ImpactHigh {
			headline = "Intervention signal: " + in.Subject
		}
		return Translated{
			Audience: a,
			Headline: headline,
			Narrative: fmt.Sprintf("Scored %.0f/100 on %s. %s Confidence band %s (%.0f%%), status %s.",
				in.Score, topic, in.Observation, in.Impact, in.Confidence*100, in.Status),
			ActionStep: step,
		}
	case AudienceFamily:
		return Translated{
			Audience:   a,
			Headline:   "Conversation catalyst",
			Narrative:  fmt.Sprintf("In %s this week, your child has been working on %s.", in.Subject, topic),
			ActionStep: "Ask them to show you how they would: " + lowerFirst(step),
		}
	default:
		headline := "Fresh start"
		switch {
		case in.Score >= 85:
			headline = "Mastery milestone"
		case in.Score >= 50:
			headline = "Building momentum"
		}
		return Translated{
			Audience:   AudienceLearner,
			Headline:   headline,
			Narrative:  in.Observation,
			ActionStep: step,
		}
	}
}

func TranslateAll(in Insight) []Translated {
	out := make([]Translated, 0, len(Audiences))
	for _, a := range Audiences {
		out = append(out, Translate(in, a))
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToLower(string(r[0])))[0]
	return string(r)
}
