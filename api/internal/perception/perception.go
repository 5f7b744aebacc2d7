// Package perception turns a photo of student work into a verbatim transcript.
// It never interprets, corrects or grades; that is the reasoning stage's job.
package perception

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"eduvane/api/internal/llm"
	"eduvane/api/internal/logging"
	"eduvane/api/internal/util"
)

var (
	//go:embed prompt/extract.system.txt
	systemPrompt string
	//go:embed prompt/extract.user.txt
	userPrompt string
)

var (
	ErrEmptyImage      = errors.New("image is empty")
	ErrUnsupportedMIME = errors.New("unsupported media type")
)

// Failure means the adapter call behind the transcription failed.
type Failure struct {
	Err error
}

func (f *Failure) Error() string { return "perception: " + f.Err.Error() }
func (f *Failure) Unwrap() error { return f.Err }

var acceptedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// NormalizeMIME lower-cases the type and folds the image/jpg alias.
func NormalizeMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m == "image/jpg" || m == "image/pjpeg" {
		return "image/jpeg"
	}
	return m
}

// Accepts reports whether mime can go through OCR. PDF is not accepted.
func Accepts(mime string) bool { return acceptedMIME[NormalizeMIME(mime)] }

type Service struct {
	adapter llm.Adapter
	log     *zap.Logger
}

func New(adapter llm.Adapter, log *zap.Logger) *Service {
	return &Service{adapter: adapter, log: logging.OrNop(log).Named("perception")}
}

// ExtractVerbatim transcribes image. An empty mime is sniffed from the bytes.
// The returned text may be empty; deciding what that means is up to the caller.
func (s *Service) ExtractVerbatim(ctx context.Context, image []byte, mime string) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	mime = NormalizeMIME(util.PickMIME(mime, "", image))
	if !Accepts(mime) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMIME, mime)
	}

	start := time.Now()
	out, err := s.adapter.Generate(ctx, llm.Request{
		System: systemPrompt,
		Text:   userPrompt,
		Image:  &llm.Blob{MIMEType: mime, Data: image},
		Effort: llm.EffortLow,
	})
	if llm.IsEmptyResponse(err) {
		s.log.Info("blank transcript", zap.String("provider", s.adapter.Name()))
		return "", nil
	}
	if err != nil {
		s.log.Warn("extract failed",
			zap.String("provider", s.adapter.Name()),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return "", &Failure{Err: err}
	}
	text := util.StripCodeFences(out)
	s.log.Debug("extracted",
		zap.String("provider", s.adapter.Name()),
		zap.String("mime", mime),
		zap.Int("bytes", len(image)),
		zap.Int("chars", len([]rune(text))),
		zap.Duration("took", time.Since(start)))
	return text, nil
}
