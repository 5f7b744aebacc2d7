package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntent(t *testing.T) {
	assert.Equal(t, IntentPractice, ParseIntent("practice"))
	assert.Equal(t, IntentAnalyze, ParseIntent(" ANALYZE "))
	assert.Equal(t, IntentUnknown, ParseIntent("grade"))
	assert.Equal(t, IntentUnknown, ParseIntent(""))
}

func TestParseDifficulty(t *testing.T) {
	assert.Equal(t, DifficultyHard, ParseDifficulty("hard"))
	assert.Equal(t, DifficultyEasy, ParseDifficulty("Easy"))
	assert.Equal(t, DifficultyMedium, ParseDifficulty("extreme"))
	assert.Equal(t, DifficultyMedium, ParseDifficulty(""))
}

func TestUnknownIntent(t *testing.T) {
	got := UnknownIntent()
	assert.Equal(t, IntentUnknown, got.Intent)
	assert.Equal(t, "General", got.Subject)
	assert.Equal(t, DefaultTopic, got.Topic)
	assert.Equal(t, DifficultyMedium, got.Difficulty)
	assert.Equal(t, 5, got.Count)
}
