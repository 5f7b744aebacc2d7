package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportErrorChain(t *testing.T) {
	base := &TransportError{Provider: "gemini", Model: "flash", Status: 401, Err: errors.New("bad key")}
	wrapped := fmt.Errorf("perception: %w", base)

	assert.True(t, IsTransport(wrapped))
	assert.Contains(t, base.Error(), "status 401")

	var te *TransportError
	require.ErrorAs(t, wrapped, &te)
	assert.Equal(t, "gemini", te.Provider)
}

func TestTransportErrorKeepsContextCause(t *testing.T) {
	err := &TransportError{Provider: "genai", Model: "pro", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestObjectSchemaKeepsOrder(t *testing.T) {
	s := Object(
		Prop("score", Number("")),
		Prop("feedback", String("")),
		Prop("improvementSteps", ArrayOf(String(""))),
	)
	assert.Equal(t, []string{"score", "feedback", "improvementSteps"}, s.Order)
	assert.Equal(t, s.Order, s.Required)

	js := s.JSON()
	assert.Equal(t, "object", js["type"])
	assert.Equal(t, false, js["additionalProperties"])
	props := js["properties"].(map[string]any)
	assert.Equal(t, "array", props["improvementSteps"].(map[string]any)["type"])
}

func TestFuncAdapter(t *testing.T) {
	var got Request
	f := Func(func(_ context.Context, req Request) (string, error) {
		got = req
		return "ok", nil
	})
	out, err := f.Generate(context.Background(), Request{Text: "hi", Effort: EffortHigh})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "hi", got.Text)
	assert.Equal(t, "high", got.Effort.String())
}
