package conversation

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"chatbot/internal/history"
	"chatbot/internal/llm"
	"chatbot/internal/prompt"
	"chatbot/internal/storage"
)

// ImageMarker reroutes a message to image generation when it prefixes
// the raw text.
const ImageMarker = "@image"

// Reply is the structured result of one handled message.
type Reply struct {
	Text        string `json:"response"`
	ImageBase64 string `json:"image,omitempty"`
	ExchangeID  string `json:"exchange_id,omitempty"`
}

// Orchestrator routes an inbound message either to image generation
// (marker present) or to prompt assembly and text generation, and
// persists the completed exchange. It keeps no state between calls;
// everything lives in the history store and the permanent context.
type Orchestrator struct {
	store        history.Store
	permanent    *prompt.PermanentContext
	builder      *prompt.Builder
	text         llm.TextClient
	image        llm.ImageClient
	recorder     storage.Recorder
	recentWindow int
	log          *zap.SugaredLogger
}

func New(store history.Store, permanent *prompt.PermanentContext, text llm.TextClient, image llm.ImageClient, recorder storage.Recorder, recentWindow int, log *zap.SugaredLogger) *Orchestrator {
	if recentWindow <= 0 {
		recentWindow = prompt.DefaultRecentWindow
	}
	return &Orchestrator{
		store:        store,
		permanent:    permanent,
		builder:      prompt.NewBuilder(),
		text:         text,
		image:        image,
		recorder:     recorder,
		recentWindow: recentWindow,
		log:          log,
	}
}

// HandleMessage processes one user message end to end. Failed
// generation calls are never persisted; history records completed
// exchanges only.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID, rawMessage string, creds llm.Credentials) (Reply, error) {
	message := strings.TrimSpace(rawMessage)
	if message == "" {
		return Reply{}, errf(KindInvalidInput, "message is empty")
	}
	if creds.APIKey == "" {
		return Reply{}, errf(KindInvalidInput, "API key is required")
	}

	if strings.HasPrefix(message, ImageMarker) {
		return o.handleImage(ctx, userID, message, creds)
	}
	return o.handleText(ctx, userID, message, creds)
}

func (o *Orchestrator) handleImage(ctx context.Context, userID, message string, creds llm.Credentials) (Reply, error) {
	imagePrompt := strings.TrimSpace(strings.TrimPrefix(message, ImageMarker))
	if imagePrompt == "" {
		return Reply{}, errf(KindInvalidInput, "image prompt is empty")
	}

	raw, err := o.image.GenerateImage(ctx, imagePrompt, creds)
	if err != nil {
		o.record(userID, storage.KindImage, imagePrompt, "", true)
		return Reply{}, fromGeneration(err)
	}

	ack := fmt.Sprintf("I've generated an image based on your prompt: %s", imagePrompt)
	id, err := o.store.Append(ctx, userID, message, ack)
	if err != nil {
		return Reply{}, &Error{Kind: KindStorage, Message: "persist exchange", Err: err}
	}
	o.record(userID, storage.KindImage, imagePrompt, "", false)

	return Reply{
		Text:        ack,
		ImageBase64: base64.StdEncoding.EncodeToString(raw),
		ExchangeID:  id,
	}, nil
}

func (o *Orchestrator) handleText(ctx context.Context, userID, message string, creds llm.Credentials) (Reply, error) {
	recent, err := o.store.Recent(ctx, userID, o.recentWindow)
	if err != nil {
		// Degrade to an empty context rather than failing the whole
		// request, but loudly: this is missing history, not absent history.
		o.log.Warnw("history read failed, assembling prompt without context",
			"user_id", userID, "error", err)
		recent = nil
	}

	fullPrompt := o.builder.Build(o.permanent, recent, message)

	resp, err := o.text.GenerateText(ctx, fullPrompt, creds)
	if err != nil {
		o.record(userID, storage.KindText, message, "", true)
		return Reply{}, fromGeneration(err)
	}

	id, err := o.store.Append(ctx, userID, message, resp.Content)
	if err != nil {
		return Reply{}, &Error{Kind: KindStorage, Message: "persist exchange", Err: err}
	}
	o.record(userID, storage.KindText, message, resp.Model, false)

	return Reply{Text: resp.Content, ExchangeID: id}, nil
}

// record writes a usage audit event. Auditing is best effort and never
// fails the request.
func (o *Orchestrator) record(userID string, kind storage.EventKind, promptText, model string, failed bool) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.AppendEvent(storage.NewEvent(userID, kind, len(promptText), model, failed)); err != nil {
		o.log.Warnw("usage audit write failed", "user_id", userID, "error", err)
	}
}
