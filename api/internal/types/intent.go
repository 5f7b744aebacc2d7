package types

import "strings"

type Intent string

const (
	IntentAnalyze  Intent = "ANALYZE"
	IntentPractice Intent = "PRACTICE"
	IntentHistory  Intent = "HISTORY"
	IntentChat     Intent = "CHAT"
	IntentUnknown  Intent = "UNKNOWN"
)

var Intents = []Intent{IntentAnalyze, IntentPractice, IntentHistory, IntentChat, IntentUnknown}

// ParseIntent maps a model label onto the enum; anything unrecognised is UNKNOWN.
func ParseIntent(s string) Intent {
	v := Intent(strings.ToUpper(strings.TrimSpace(s)))
	for _, in := range Intents {
		if v == in {
			return v
		}
	}
	return IntentUnknown
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty is case-insensitive and falls back to Medium.
func ParseDifficulty(s string) Difficulty {
	s = strings.TrimSpace(s)
	for _, d := range Difficulties {
		if strings.EqualFold(s, string(d)) {
			return d
		}
	}
	return DifficultyMedium
}

const (
	DefaultSubject = "General"
	DefaultTopic   = "Undetermined"
	DefaultCount   = 5
	MaxCount       = 50
)

// IntentResult is the classification handed from Interpretation to Reasoning.
// It is never persisted.
type IntentResult struct {
	Intent     Intent     `json:"intent"`
	Subject    string     `json:"subject"`
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
	Count      int        `json:"count"`
}

// UnknownIntent is the degraded result used when the classifier reply is unusable.
func UnknownIntent() IntentResult {
	return IntentResult{
		Intent:     IntentUnknown,
		Subject:    DefaultSubject,
		Topic:      DefaultTopic,
		Difficulty: DifficultyMedium,
		Count:      DefaultCount,
	}
}
