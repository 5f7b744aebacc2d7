package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"eduvane/api/internal/llm"
)

const highEffortMaxTokens = 8192

// Engine calls Gemini through github.com/google/generative-ai-go. The SDK has
// no thinking controls, so a high effort request only raises the output budget.
type Engine struct {
	key   func() string
	model string
	opts  []option.ClientOption
}

func New(key func() string, model string, opts ...option.ClientOption) *Engine {
	return &Engine{
		key:   key,
		model: strings.TrimSpace(model),
		opts:  opts,
	}
}

func (e *Engine) Name() string  { return "gemini" }
func (e *Engine) Model() string { return e.model }

func (e *Engine) fail(err error) error {
	te := &llm.TransportError{Provider: e.Name(), Model: e.model, Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		te.Status = gerr.Code
	}
	return te
}

func (e *Engine) Generate(ctx context.Context, req llm.Request) (string, error) {
	key := strings.TrimSpace(e.key())
	if key == "" {
		return "", e.fail(errors.New("GEMINI_API_KEY is empty"))
	}
	// a fresh client per call picks up a rotated key
	cl, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(key)}, e.opts...)...)
	if err != nil {
		return "", e.fail(err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.model)
	if m == nil {
		return "", e.fail(errors.New("model is nil"))
	}
	m.GenerationConfig = buildConfig(req)
	if s := strings.TrimSpace(req.System); s != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(s)}}
	}

	resp, err := m.GenerateContent(ctx, buildParts(req)...)
	if err != nil {
		return "", e.fail(err)
	}
	txt := firstText(resp)
	if strings.TrimSpace(txt) == "" {
		return "", e.fail(llm.ErrEmptyResponse)
	}
	return txt, nil
}

func buildConfig(req llm.Request) genai.GenerationConfig {
	gc := genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}
	if req.Schema != nil {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseSchema = toSchema(req.Schema)
	}
	if req.Effort == llm.EffortHigh {
		gc.MaxOutputTokens = ptrInt32(highEffortMaxTokens)
	}
	return gc
}

func buildParts(req llm.Request) []genai.Part {
	var parts []genai.Part
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data})
	}
	if t := strings.TrimSpace(req.Text); t != "" {
		parts = append(parts, genai.Text(t))
	}
	return parts
}

func toSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	if len(s.Enum) > 0 {
		out.Format = "enum"
		out.Enum = s.Enum
	}
	if s.Items != nil {
		out.Items = toSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toSchema(v)
		}
	}
	return out
}

func toType(t llm.Type) genai.Type {
	switch t {
	case llm.TypeString:
		return genai.TypeString
	case llm.TypeNumber:
		return genai.TypeNumber
	case llm.TypeInteger:
		return genai.TypeInteger
	case llm.TypeBoolean:
		return genai.TypeBoolean
	case llm.TypeArray:
		return genai.TypeArray
	case llm.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
