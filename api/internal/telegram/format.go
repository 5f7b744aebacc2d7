package telegram

import (
	"fmt"
	"strings"

	"eduvane/api/internal/types"
)

const maxMessageRunes = 3900

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageRunes {
		return s
	}
	return string(r[:maxMessageRunes]) + "…"
}

func formatEvaluation(res types.EvaluationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %.0f/100\n", res.Score)
	fmt.Fprintf(&b, "%s · %s\n\n", res.Subject, res.Topic)
	b.WriteString(res.Feedback)
	if len(res.ImprovementSteps) > 0 {
		b.WriteString("\n\nNext steps:")
		for i, s := range res.ImprovementSteps {
			fmt.Fprintf(&b, "\n%d. %s", i+1, s)
		}
	}
	return b.String()
}

func formatPractice(set types.PracticeSet) string {
	if len(set.Questions) == 0 {
		return "I could not put together questions for that request. Try rephrasing it, " +
			"e.g. \"5 Easy Math questions on fractions\"."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s · %s (%s)\n", set.Subject, set.Topic, set.Difficulty)
	for i, q := range set.Questions {
		fmt.Fprintf(&b, "\n%d. %s", i+1, q.Text)
	}
	return b.String()
}

func formatHistory(subs []types.Submission) string {
	if len(subs) == 0 {
		return "No submissions yet. Send a photo of your work to get started."
	}
	var b strings.Builder
	b.WriteString("Your latest work:")
	for _, s := range subs {
		fmt.Fprintf(&b, "\n%s  %s · %s  %.0f/100",
			s.Timestamp.Format("2006-01-02"), s.Subject, s.Topic, s.Score)
	}
	return b.String()
}
