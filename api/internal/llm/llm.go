// Package llm is the narrow boundary between the pipeline stages and a hosted
// generative model. Stages build a Request and get raw text back; everything
// vendor-specific lives in the subpackages.
package llm

import (
	"context"
	"errors"
	"fmt"
)

type Adapter interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Effort is a hint for slower, higher quality generation.
type Effort int

const (
	EffortDefault Effort = iota
	EffortLow
	EffortHigh
)

func (e Effort) String() string {
	switch e {
	case EffortLow:
		return "low"
	case EffortHigh:
		return "high"
	default:
		return "default"
	}
}

type Blob struct {
	MIMEType string
	Data     []byte
}

type Request struct {
	System string
	Text   string
	Image  *Blob
	Schema *Schema
	Effort Effort
}

// TransportError is the only error an adapter returns: the remote call did not
// produce a usable reply (network, auth, quota, blocked or empty candidate).
type TransportError struct {
	Provider string
	Model    string
	Status   int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s/%s: status %d: %v", e.Provider, e.Model, e.Status, e.Err)
	}
	return fmt.Sprintf("%s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrEmptyResponse means the call succeeded but the model returned no text.
var ErrEmptyResponse = errors.New("empty response")

// IsEmptyResponse reports whether err only says the reply was blank.
func IsEmptyResponse(err error) bool { return errors.Is(err, ErrEmptyResponse) }

// IsTransport reports whether err carries a TransportError anywhere in its chain.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Func adapts a plain function to the Adapter interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Name() string  { return "func" }
func (f Func) Model() string { return "func" }

func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
