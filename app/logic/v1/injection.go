package v1

import (
	"context"

	"github.com/samber/lo"

	"github.com/quka-ai/daybook/pkg/assistant"
	"github.com/quka-ai/daybook/pkg/security"
	"github.com/quka-ai/daybook/pkg/types"
)

const (
	TOKEN_CONTEXT_KEY = "__daybook.access_token"
	LANGUAGE_KEY      = "__daybook.accept_language"
)

// InjectTokenClaim get user token claims from context
func InjectTokenClaim(ctx context.Context) (security.TokenClaims, bool) {
	val, ok := ctx.Value(TOKEN_CONTEXT_KEY).(security.TokenClaims)
	return val, ok
}

func InjectLanguage(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(LANGUAGE_KEY).(string)
	return val, ok
}

func GetContentByClientLanguage[T any](c context.Context, enRes T, cnRes T) T {
	clientLang, _ := InjectLanguage(c)
	return lo.If(clientLang == types.LANGUAGE_CN_KEY, cnRes).Else(enRes)
}

// ClientLanguage 未设置时按英文处理
func ClientLanguage(c context.Context) string {
	return GetContentByClientLanguage(c, types.LANGUAGE_EN_KEY, types.LANGUAGE_CN_KEY)
}

// withClientReplyLanguage 中文客户端要求模型使用简体中文回复
func withClientReplyLanguage(c context.Context) context.Context {
	return assistant.WithReplyLanguage(c, GetContentByClientLanguage(c, "", "Simplified Chinese"))
}
