package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"eduvane/api/internal/logging"
	"eduvane/api/internal/orchestrator"
	"eduvane/api/internal/perception"
	"eduvane/api/internal/store"
	"eduvane/api/internal/types"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Flows interface {
	EvaluateWorkFlow(ctx context.Context, image []byte, mime string) (types.EvaluationResult, error)
	GeneratePracticeFlow(ctx context.Context, prompt string) (orchestrator.PracticeResult, error)
}

const historySize = 5

type Router struct {
	Bot   Bot
	Flows Flows
	Store store.Store
	Log   *zap.Logger

	// Debounce groups album photos into one submission. Zero handles each
	// photo as soon as it arrives.
	Debounce time.Duration
	// Download fetches a Telegram file URL.
	Download func(ctx context.Context, url string) ([]byte, error)
	Now      func() time.Time
	NewID    func() string
}

func NewRouter(bot Bot, flows Flows, st store.Store, log *zap.Logger) *Router {
	return &Router{
		Bot:      bot,
		Flows:    flows,
		Store:    st,
		Log:      logging.OrNop(log).Named("telegram"),
		Debounce: DefaultDebounce,
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    uuid.NewString,
	}
}

func chatUserID(chatID int64) string { return fmt.Sprintf("tg:%d", chatID) }

func (r *Router) log() *zap.Logger { return logging.OrNop(r.Log) }

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(ctx, *msg)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptDocument(ctx, *msg)
	case strings.TrimSpace(msg.Text) != "":
		r.practice(ctx, cid, msg.Text)
	}
}

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, startText)
	case "practice":
		args := strings.TrimSpace(msg.CommandArguments())
		if args == "" {
			r.send(cid, "Tell me what to practise, e.g. /practice 10 Physics problems on Newton's Laws")
			return
		}
		r.practice(ctx, cid, args)
	case "history":
		r.history(ctx, cid)
	default:
		r.send(cid, "Unknown command. Try /help")
	}
}

const startText = "Send a photo of your work and I will score it and suggest next steps.\n" +
	"Send a request like \"5 Hard Math questions on fractions\" for practice.\n" +
	"Commands: /practice <request>, /history"

func (r *Router) practice(ctx context.Context, cid int64, prompt string) {
	r.typing(cid)
	res, err := r.Flows.GeneratePracticeFlow(ctx, prompt)
	if err != nil {
		r.sendError(cid, err)
		return
	}
	set := types.PracticeSet{
		ID:         r.NewID(),
		UserID:     chatUserID(cid),
		Timestamp:  r.Now(),
		Subject:    res.Intent.Subject,
		Topic:      res.Intent.Topic,
		Difficulty: res.Intent.Difficulty,
		Questions:  res.Questions,
	}
	if err := r.Store.SavePracticeSet(ctx, set); err != nil {
		r.log().Error("save practice set", zap.Int64("chat", cid), zap.Error(err))
	}
	r.send(cid, formatPractice(set))
}

func (r *Router) evaluate(ctx context.Context, cid int64, img []byte) {
	r.typing(cid)
	res, err := r.Flows.EvaluateWorkFlow(ctx, img, "")
	if err != nil {
		r.sendError(cid, err)
		return
	}
	uid := chatUserID(cid)
	sub := types.Submission{
		ID:               r.NewID(),
		UserID:           uid,
		Timestamp:        r.Now(),
		ImageURL:         store.ImageRef(uid, img, ""),
		EvaluationResult: res,
	}
	if err := r.Store.SaveSubmission(ctx, sub); err != nil {
		r.log().Error("save submission", zap.Int64("chat", cid), zap.Error(err))
	}
	r.send(cid, formatEvaluation(res))
}

func (r *Router) history(ctx context.Context, cid int64) {
	subs, err := r.Store.ListSubmissions(ctx, chatUserID(cid), historySize)
	if err != nil {
		r.log().Error("list submissions", zap.Int64("chat", cid), zap.Error(err))
		r.send(cid, "Could not load your history right now.")
		return
	}
	r.send(cid, formatHistory(subs))
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, clip(text))); err != nil {
		r.log().Warn("send", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) typing(chatID int64) {
	_, _ = r.Bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
}

// sendError turns pipeline failures into advice the user can act on.
func (r *Router) sendError(chatID int64, err error) {
	r.log().Info("flow failed", zap.Int64("chat", chatID), zap.Error(err))
	switch {
	case errors.Is(err, orchestrator.ErrPerceptionEmpty):
		r.send(chatID, "I could not read any writing in that photo. Try again with the page flat and well lit.")
	case errors.Is(err, perception.ErrUnsupportedMIME):
		r.send(chatID, "Please send the work as a photo (JPEG, PNG, WebP or HEIC).")
	case errors.Is(err, orchestrator.ErrEmptyPrompt):
		r.send(chatID, "Tell me what you would like to practise.")
	case errors.Is(err, context.DeadlineExceeded):
		r.send(chatID, "That took too long. Please try again.")
	default:
		r.send(chatID, "Something went wrong talking to the AI service. Please try again in a moment.")
	}
}
