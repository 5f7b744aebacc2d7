package types

import "time"

// EvaluationResult is the Reasoning stage's verdict on a piece of work.
type EvaluationResult struct {
	Subject          string   `json:"subject"`
	Topic            string   `json:"topic"`
	Score            float64  `json:"score"`
	Feedback         string   `json:"feedback"`
	ImprovementSteps []string `json:"improvementSteps"`
	// ConfidenceScore is self-reported by the model. Only usable for ranking.
	ConfidenceScore float64 `json:"confidenceScore"`
}

type PracticeQuestion struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// Submission is an EvaluationResult after the caller attached identity and storage metadata.
type Submission struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	ImageURL  string    `json:"imageUrl"`
	EvaluationResult
}

type PracticeSet struct {
	ID         string             `json:"id"`
	UserID     string             `json:"userId"`
	Timestamp  time.Time          `json:"timestamp"`
	Subject    string             `json:"subject"`
	Topic      string             `json:"topic"`
	Difficulty Difficulty         `json:"difficulty"`
	Questions  []PracticeQuestion `json:"questions"`
}

type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	GradeLevel  string `json:"gradeLevel,omitempty"`
	Mode        Mode   `json:"mode"`
}

// Mode selects between the self-serve product and the school deployment.
type Mode string

const (
	ModeStandalone    Mode = "STANDALONE"
	ModeInstitutional Mode = "INSTITUTIONAL"
)
