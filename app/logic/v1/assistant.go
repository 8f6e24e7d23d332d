package v1

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quka-ai/daybook/app/core"
	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
	"github.com/quka-ai/daybook/pkg/types"
)

const DAILY_PROMPT_EXPIRE = 24 * time.Hour

type Assistant interface {
	Prompt(ctx context.Context) string
	Reflect(ctx context.Context, text string) string
	Chat(ctx context.Context, history []types.MessageContext, input string) string
}

type AssistantLogic struct {
	UserInfo
	ctx       context.Context
	assistant Assistant
	cache     types.Cache
	loc       *time.Location
	now       func() time.Time
}

func NewAssistantLogic(ctx context.Context, core *core.Core) *AssistantLogic {
	var cache types.Cache
	if c := core.Cache(); c != nil {
		cache = c
	}
	return newAssistantLogic(ctx, core.Assistant(), cache, core.Cfg().Journal.Location())
}

func newAssistantLogic(ctx context.Context, assistant Assistant, cache types.Cache, loc *time.Location) *AssistantLogic {
	return &AssistantLogic{
		UserInfo:  SetupUserInfo(ctx),
		ctx:       withClientReplyLanguage(ctx),
		assistant: assistant,
		cache:     cache,
		loc:       loc,
		now:       time.Now,
	}
}

func dailyPromptKey(userID, lang string, day time.Time) string {
	return fmt.Sprintf("prompt:%s:%s:%s", userID, lang, day.Format(types.DATE_LAYOUT))
}

// DailyPrompt 同一用户同一天同一语言返回同一个写作提示
func (l *AssistantLogic) DailyPrompt() (string, error) {
	userID, err := l.RequireUser("AssistantLogic.DailyPrompt.RequireUser")
	if err != nil {
		return "", err
	}

	if l.cache == nil {
		return l.assistant.Prompt(l.ctx), nil
	}

	key := dailyPromptKey(userID, ClientLanguage(l.ctx), l.now().In(l.loc))
	prompt, err := l.cache.Get(l.ctx, key)
	if err == nil && prompt != "" {
		return prompt, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("failed to get daily prompt from cache", slog.String("key", key), slog.String("error", err.Error()))
	}

	prompt = l.assistant.Prompt(l.ctx)
	if err = l.cache.SetEx(l.ctx, key, prompt, DAILY_PROMPT_EXPIRE); err != nil {
		slog.Warn("failed to cache daily prompt", slog.String("key", key), slog.String("error", err.Error()))
	}
	return prompt, nil
}

func (l *AssistantLogic) Reflect(text string) (string, error) {
	if _, err := l.RequireUser("AssistantLogic.Reflect.RequireUser"); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("AssistantLogic.Reflect.text", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest).Kind(errors.ErrInvalid)
	}
	return l.assistant.Reflect(l.ctx, text), nil
}

func (l *AssistantLogic) Chat(history []types.MessageContext, input string) (string, error) {
	if _, err := l.RequireUser("AssistantLogic.Chat.RequireUser"); err != nil {
		return "", err
	}
	if strings.TrimSpace(input) == "" {
		return "", errors.New("AssistantLogic.Chat.input", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest).Kind(errors.ErrInvalid)
	}
	return l.assistant.Chat(l.ctx, history, input), nil
}
