package gpt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"eduvane/api/internal/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Engine struct {
	key     func() string
	model   string
	baseURL string
	httpc   *http.Client
}

func New(key func() string, model string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// reasoning models take a while before the first header
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}

	return &Engine{
		key:     key,
		model:   strings.TrimSpace(model),
		baseURL: defaultBaseURL,
		// no client timeout: the caller's context bounds the call
		httpc: &http.Client{
			Timeout:   0,
			Transport: tr,
		},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) WithBaseURL(u string) *Engine {
	if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
		e.baseURL = u
	}
	return e
}

func (e *Engine) Name() string  { return "gpt" }
func (e *Engine) Model() string { return e.model }

func (e *Engine) fail(status int, err error) error {
	return &llm.TransportError{Provider: e.Name(), Model: e.model, Status: status, Err: err}
}

// isReasoningModel reports whether the model accepts a reasoning effort and
// rejects temperature.
func isReasoningModel(m string) bool {
	m = strings.ToLower(m)
	return strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") ||
		strings.HasPrefix(m, "o4") || strings.Contains(m, "gpt-5")
}

func isOpenAIImageMIME(m string) bool {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return true
	}
	return false
}

func (e *Engine) buildBody(req llm.Request) (map[string]any, error) {
	userContent := []any{}
	if t := strings.TrimSpace(req.Text); t != "" {
		userContent = append(userContent, map[string]any{"type": "input_text", "text": t})
	}
	if req.Image != nil && len(req.Image.Data) > 0 {
		if !isOpenAIImageMIME(req.Image.MIMEType) {
			return nil, fmt.Errorf("unsupported MIME %s (need image/jpeg|png|webp|gif)", req.Image.MIMEType)
		}
		dataURL := "data:" + req.Image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.Image.Data)
		userContent = append(userContent, map[string]any{"type": "input_image", "image_url": dataURL})
	}

	input := []any{}
	if s := strings.TrimSpace(req.System); s != "" {
		input = append(input, map[string]any{
			"role": "system",
			"content": []any{
				map[string]any{"type": "input_text", "text": s},
			},
		})
	}
	input = append(input, map[string]any{
		"type":    "message",
		"role":    "user",
		"content": userContent,
	})

	body := map[string]any{
		"model": e.model,
		"input": input,
	}
	if isReasoningModel(e.model) {
		switch req.Effort {
		case llm.EffortHigh:
			body["reasoning"] = map[string]any{"effort": "high"}
		case llm.EffortLow:
			body["reasoning"] = map[string]any{"effort": "low"}
		}
	} else {
		body["temperature"] = 0
	}
	if req.Schema != nil {
		body["text"] = map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   "reply",
				"strict": true,
				"schema": req.Schema.JSON(),
			},
		}
	}
	return body, nil
}

func (e *Engine) Generate(ctx context.Context, req llm.Request) (string, error) {
	key := strings.TrimSpace(e.key())
	if key == "" {
		return "", e.fail(0, errors.New("OPENAI_API_KEY is empty"))
	}
	body, err := e.buildBody(req)
	if err != nil {
		return "", e.fail(0, err)
	}
	payload, _ := json.Marshal(body)

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return "", e.fail(0, err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Authorization", "Bearer "+key)

	resp, err := e.httpc.Do(hreq)
	if err != nil {
		return "", e.fail(0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", e.fail(resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", e.fail(resp.StatusCode, errors.New(truncateBytes(bytes.TrimSpace(raw), 512)))
	}
	out := extractResponsesText(raw)
	if strings.TrimSpace(out) == "" {
		return "", e.fail(resp.StatusCode, fmt.Errorf("%w; body=%s", llm.ErrEmptyResponse, truncateBytes(raw, 512)))
	}
	return out, nil
}

// extractResponsesText extracts model text from the Responses API envelope.
// It prefers `output_text`, and otherwise concatenates any text segments
// found in `output[i].content[j].text` where `type` is `output_text` or `text`.
func extractResponsesText(raw []byte) string {
	type content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	type output struct {
		Type    string    `json:"type"`
		Content []content `json:"content"`
	}
	var env struct {
		Output     []output `json:"output"`
		OutputText string   `json:"output_text"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	if s := strings.TrimSpace(env.OutputText); s != "" {
		return s
	}

	var b strings.Builder
	for _, o := range env.Output {
		if o.Type == "reasoning" {
			continue
		}
		for _, c := range o.Content {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			if c.Type == "output_text" || c.Type == "text" || c.Type == "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(c.Text)
			}
		}
	}
	return b.String()
}

func truncateBytes(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
