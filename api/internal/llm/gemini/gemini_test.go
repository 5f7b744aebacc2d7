package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduvane/api/internal/llm"
)

func TestGenerateWithoutKeyIsTransportError(t *testing.T) {
	e := New(func() string { return "  " }, "gemini-2.5-flash")

	_, err := e.Generate(context.Background(), llm.Request{Text: "hi"})
	var te *llm.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "gemini", te.Provider)
	assert.Equal(t, "gemini-2.5-flash", te.Model)
}

func TestToSchema(t *testing.T) {
	s := llm.Object(
		llm.Prop("intent", llm.Enum("", "ANALYZE", "UNKNOWN")),
		llm.Prop("count", llm.Integer("")),
		llm.Prop("steps", llm.ArrayOf(llm.String(""))),
	)
	got := toSchema(s)

	assert.Equal(t, genai.TypeObject, got.Type)
	assert.Equal(t, []string{"intent", "count", "steps"}, got.Required)
	assert.Equal(t, "enum", got.Properties["intent"].Format)
	assert.Equal(t, []string{"ANALYZE", "UNKNOWN"}, got.Properties["intent"].Enum)
	assert.Equal(t, genai.TypeInteger, got.Properties["count"].Type)
	assert.Equal(t, genai.TypeString, got.Properties["steps"].Items.Type)
}

func TestBuildConfigAndParts(t *testing.T) {
	req := llm.Request{
		Text:   "  transcribe  ",
		Image:  &llm.Blob{MIMEType: "image/png", Data: []byte{1, 2}},
		Schema: llm.Object(llm.Prop("a", llm.String(""))),
		Effort: llm.EffortHigh,
	}
	gc := buildConfig(req)
	assert.Equal(t, "application/json", gc.ResponseMIMEType)
	require.NotNil(t, gc.MaxOutputTokens)
	assert.EqualValues(t, highEffortMaxTokens, *gc.MaxOutputTokens)

	parts := buildParts(req)
	require.Len(t, parts, 2)
	assert.Equal(t, genai.Blob{MIMEType: "image/png", Data: []byte{1, 2}}, parts[0])
	assert.Equal(t, genai.Text("transcribe"), parts[1])

	plain := buildConfig(llm.Request{})
	assert.Empty(t, plain.ResponseMIMEType)
	assert.Nil(t, plain.MaxOutputTokens)
}

func TestFirstText(t *testing.T) {
	assert.Equal(t, "", firstText(nil))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}}},
	}}
	assert.Equal(t, `{"a":1}`, firstText(resp))
}
