package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
	"github.com/quka-ai/daybook/pkg/types"
)

const (
	PROMPT_JOURNAL   = `You are a thoughtful journaling assistant. Generate a single, creative journaling prompt that helps with self-reflection and personal growth. Keep it concise (under 100 characters) and thought-provoking.`
	PROMPT_REFLECT   = `You are an empathetic and insightful journaling assistant. Provide a brief, thoughtful reflection (2-3 sentences) on the user's journal entry. Focus on highlighting themes, offering gentle perspective, or asking a follow-up question. Be supportive and avoid being judgmental.`
	PROMPT_SUMMARIZE = `You are a concise summarization assistant. Summarize the following journal entry in 1-2 sentences, capturing the key themes and emotions.`
	PROMPT_CHAT      = `You are a helpful, empathetic journaling assistant. Your goal is to help the user reflect, process emotions, and grow through journaling. Keep responses concise, supportive, and thoughtful.`
)

const (
	FALLBACK_PROMPT    = "What's something you're grateful for today?"
	FALLBACK_REFLECT   = "Thank you for sharing your thoughts. Reflection is a powerful practice for personal growth."
	FALLBACK_SUMMARIZE = "Journal entry summary not available."
	FALLBACK_CHAT      = "I'm having trouble responding right now. Please try again later."
)

// Completer turns a role tagged conversation into a single reply.
type Completer interface {
	Complete(ctx context.Context, messages []types.MessageContext) (string, error)
}

type ObserveFunc func(method string, cost time.Duration, fallback bool)

// Assistant never fails: any completion error or empty reply is replaced by a fixed text.
type Assistant struct {
	driver  Completer
	timeout time.Duration
	observe ObserveFunc
}

type Option func(*Assistant)

func WithTimeout(d time.Duration) Option {
	return func(a *Assistant) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithObserver(fn ObserveFunc) Option {
	return func(a *Assistant) {
		a.observe = fn
	}
}

func New(driver Completer, opts ...Option) *Assistant {
	a := &Assistant{
		driver:  driver,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assistant) Prompt(ctx context.Context) string {
	return a.complete(ctx, "prompt", FALLBACK_PROMPT, []types.MessageContext{
		{Role: types.USER_ROLE_SYSTEM, Content: PROMPT_JOURNAL},
	})
}

func (a *Assistant) Reflect(ctx context.Context, text string) string {
	return a.complete(ctx, "reflect", FALLBACK_REFLECT, []types.MessageContext{
		{Role: types.USER_ROLE_SYSTEM, Content: PROMPT_REFLECT},
		{Role: types.USER_ROLE_USER, Content: "Here's my journal entry: " + text},
	})
}

func (a *Assistant) Summarize(ctx context.Context, text string) string {
	return a.complete(ctx, "summarize", FALLBACK_SUMMARIZE, []types.MessageContext{
		{Role: types.USER_ROLE_SYSTEM, Content: PROMPT_SUMMARIZE},
		{Role: types.USER_ROLE_USER, Content: text},
	})
}

// Chat sends the persona, the previous turns and input, in that order.
// System messages in history are dropped, the persona is the only one.
func (a *Assistant) Chat(ctx context.Context, history []types.MessageContext, input string) string {
	messages := make([]types.MessageContext, 0, len(history)+2)
	messages = append(messages, types.MessageContext{Role: types.USER_ROLE_SYSTEM, Content: PROMPT_CHAT})
	for _, v := range history {
		if v.Role == types.USER_ROLE_SYSTEM || strings.TrimSpace(v.Content) == "" {
			continue
		}
		messages = append(messages, v)
	}
	messages = append(messages, types.MessageContext{Role: types.USER_ROLE_USER, Content: input})
	return a.complete(ctx, "chat", FALLBACK_CHAT, messages)
}

type replyLanguageKey struct{}

// WithReplyLanguage asks the model to answer in lang, e.g. "Simplified Chinese".
// An empty lang leaves the persona untouched. Fallback texts are not translated.
func WithReplyLanguage(ctx context.Context, lang string) context.Context {
	if lang == "" {
		return ctx
	}
	return context.WithValue(ctx, replyLanguageKey{}, lang)
}

func replyLanguage(ctx context.Context) string {
	lang, _ := ctx.Value(replyLanguageKey{}).(string)
	return lang
}

// withLanguageHint 只修改 persona，不改变消息顺序
func withLanguageHint(ctx context.Context, messages []types.MessageContext) []types.MessageContext {
	lang := replyLanguage(ctx)
	if lang == "" || len(messages) == 0 || messages[0].Role != types.USER_ROLE_SYSTEM {
		return messages
	}
	res := make([]types.MessageContext, len(messages))
	copy(res, messages)
	res[0].Content = fmt.Sprintf("%s Always reply in %s.", res[0].Content, lang)
	return res
}

func (a *Assistant) complete(ctx context.Context, method, fallback string, messages []types.MessageContext) string {
	messages = withLanguageHint(ctx, messages)
	start := time.Now()
	reply, err := a.Complete(ctx, messages)
	useFallback := err != nil || reply == ""
	if err != nil {
		slog.Error("assistant completion failed, use fallback", slog.String("method", method), slog.String("error", err.Error()))
	}
	if a.observe != nil {
		a.observe(method, time.Since(start), useFallback)
	}
	if useFallback {
		return fallback
	}
	return reply
}

// Complete calls the driver directly and classifies failures as service errors.
func (a *Assistant) Complete(ctx context.Context, messages []types.MessageContext) (string, error) {
	if a.driver == nil {
		return "", errors.New("Assistant.Complete.driver", i18n.ERROR_SERVICE_UNAVAILABLE, nil).Kind(errors.ErrService)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.driver.Complete(ctx, messages)
	if err != nil {
		return "", errors.New("Assistant.Complete.driver.Complete", i18n.ERROR_SERVICE_UNAVAILABLE, err).Kind(errors.ErrService)
	}
	return strings.TrimSpace(reply), nil
}
