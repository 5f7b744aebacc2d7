// Package googleai adapts google.golang.org/genai, the SDK that exposes Gemini
// thinking budgets. It backs the reasoning tier by default.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"eduvane/api/internal/llm"
)

type Engine struct {
	key            func() string
	model          string
	thinkingBudget int32
	baseURL        string
	httpc          *http.Client
}

type Option func(*Engine)

// WithBaseURL points the client at another endpoint (proxies, tests).
func WithBaseURL(u string) Option { return func(e *Engine) { e.baseURL = u } }

func WithHTTPClient(c *http.Client) Option { return func(e *Engine) { e.httpc = c } }

func New(key func() string, model string, thinkingBudget int, opts ...Option) *Engine {
	e := &Engine{
		key:            key,
		model:          strings.TrimSpace(model),
		thinkingBudget: int32(thinkingBudget),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Name() string  { return "genai" }
func (e *Engine) Model() string { return e.model }

func (e *Engine) fail(err error) error {
	return &llm.TransportError{Provider: e.Name(), Model: e.model, Err: err}
}

func (e *Engine) Generate(ctx context.Context, req llm.Request) (string, error) {
	key := strings.TrimSpace(e.key())
	if key == "" {
		return "", e.fail(errors.New("GEMINI_API_KEY is empty"))
	}
	cc := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: e.httpc,
	}
	if e.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: e.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return "", e.fail(err)
	}

	resp, err := client.Models.GenerateContent(ctx, e.model, buildContents(req), e.buildConfig(req))
	if err != nil {
		return "", e.fail(err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", e.fail(fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
	}
	txt := firstText(resp)
	if strings.TrimSpace(txt) == "" {
		return "", e.fail(llm.ErrEmptyResponse)
	}
	return txt, nil
}

func buildContents(req llm.Request) []*genai.Content {
	var parts []*genai.Part
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	if t := strings.TrimSpace(req.Text); t != "" {
		parts = append(parts, genai.NewPartFromText(t))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func (e *Engine) buildConfig(req llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: ptrFloat32(0),
	}
	if s := strings.TrimSpace(req.System); s != "" {
		cfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toSchema(req.Schema)
	}
	switch req.Effort {
	case llm.EffortHigh:
		if e.thinkingBudget > 0 {
			cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: ptrInt32(e.thinkingBudget)}
		}
	case llm.EffortLow:
		// pro models cannot switch thinking off
		if !strings.Contains(e.model, "pro") {
			cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: ptrInt32(0)}
		}
	}
	return cfg
}

func toSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
	}
	if s.Items != nil {
		out.Items = toSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toSchema(v)
		}
		out.PropertyOrdering = s.Order
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

// firstText joins the answer parts of the first candidate, skipping thoughts.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if p == nil || p.Thought {
				continue
			}
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
