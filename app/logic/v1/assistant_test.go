package v1

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/types"
)

type countingAssistant struct {
	prompts int
	history []types.MessageContext
	ctx     context.Context
}

func (a *countingAssistant) Prompt(ctx context.Context) string {
	a.ctx = ctx
	a.prompts++
	return "prompt #" + string(rune('0'+a.prompts))
}

func (a *countingAssistant) Reflect(ctx context.Context, text string) string {
	return "reflection on " + text
}

func (a *countingAssistant) Chat(ctx context.Context, history []types.MessageContext, input string) string {
	a.history = history
	return "reply to " + input
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (c *memoryCache) SetEx(ctx context.Context, key, value string, expiresAt time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttl[key] = expiresAt
	return nil
}

func TestAssistantLogicDailyPromptCached(t *testing.T) {
	assistant := &countingAssistant{}
	cache := newMemoryCache()
	logic := newAssistantLogic(userCtx("u1"), assistant, cache, time.UTC)
	day := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	logic.now = func() time.Time { return day }

	first, err := logic.DailyPrompt()
	require.NoError(t, err)
	second, err := logic.DailyPrompt()
	require.NoError(t, err)

	assert.Equal(t, "prompt #1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, assistant.prompts)
	assert.Equal(t, DAILY_PROMPT_EXPIRE, cache.ttl["prompt:u1:en:2024-03-05"])

	// next day gets a fresh prompt
	logic.now = func() time.Time { return day.AddDate(0, 0, 1) }
	third, err := logic.DailyPrompt()
	require.NoError(t, err)
	assert.Equal(t, "prompt #2", third)
}

func TestAssistantLogicWithoutCache(t *testing.T) {
	assistant := &countingAssistant{}
	logic := newAssistantLogic(userCtx("u1"), assistant, nil, time.UTC)

	_, err := logic.DailyPrompt()
	require.NoError(t, err)
	_, err = logic.DailyPrompt()
	require.NoError(t, err)
	assert.Equal(t, 2, assistant.prompts)
}

func TestAssistantLogicReflectAndChat(t *testing.T) {
	assistant := &countingAssistant{}
	logic := newAssistantLogic(userCtx("u1"), assistant, nil, time.UTC)

	reflection, err := logic.Reflect("a quiet day")
	require.NoError(t, err)
	assert.Equal(t, "reflection on a quiet day", reflection)

	_, err = logic.Reflect("  ")
	assert.True(t, errors.Is(err, errors.ErrInvalid))

	history := []types.MessageContext{{Role: types.USER_ROLE_USER, Content: "hi"}}
	reply, err := logic.Chat(history, "how are you?")
	require.NoError(t, err)
	assert.Equal(t, "reply to how are you?", reply)
	assert.Equal(t, history, assistant.history)

	anonymous := newAssistantLogic(context.Background(), assistant, nil, time.UTC)
	_, err = anonymous.Chat(nil, "hello")
	assert.True(t, errors.Is(err, errors.ErrAuth))
}

func TestAssistantLogicClientLanguage(t *testing.T) {
	assistant := &countingAssistant{}
	cache := newMemoryCache()
	day := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)

	en := newAssistantLogic(userCtx("u1"), assistant, cache, time.UTC)
	en.now = func() time.Time { return day }
	_, err := en.DailyPrompt()
	require.NoError(t, err)

	zhCtx := context.WithValue(userCtx("u1"), LANGUAGE_KEY, types.LANGUAGE_CN_KEY)
	zh := newAssistantLogic(zhCtx, assistant, cache, time.UTC)
	zh.now = func() time.Time { return day }
	prompt, err := zh.DailyPrompt()
	require.NoError(t, err)

	// 不同语言分别缓存
	assert.Equal(t, "prompt #2", prompt)
	assert.Contains(t, cache.data, "prompt:u1:en:2024-03-05")
	assert.Contains(t, cache.data, "prompt:u1:zh-CN:2024-03-05")
	assert.Equal(t, zh.ctx, assistant.ctx)
}
