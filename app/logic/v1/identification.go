package v1

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
	"github.com/quka-ai/daybook/pkg/security"
)

type _userInfo struct {
	u *security.TokenClaims
}

func (u *_userInfo) GetUserInfo() security.TokenClaims {
	return *u.u
}

func (u *_userInfo) Principal() security.Principal {
	return u.u.Principal()
}

// RequireUser 所有日记操作都需要登录用户
func (u *_userInfo) RequireUser(trace string) (string, error) {
	if u.u.User == "" {
		return "", errors.New(trace, i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized).Kind(errors.ErrAuth)
	}
	return u.u.User, nil
}

func SetupUserInfo(ctx context.Context) UserInfo {
	userInfo, ok := InjectTokenClaim(ctx)
	if !ok {
		slog.Error("Not found user in context", slog.String("component", "logic.v1.setupUserInfo"))
		userInfo = security.TokenClaims{}
	}
	return &_userInfo{
		u: &userInfo,
	}
}

type UserInfo interface {
	GetUserInfo() security.TokenClaims
	Principal() security.Principal
	RequireUser(trace string) (string, error)
}
