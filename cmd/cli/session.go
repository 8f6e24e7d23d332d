package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/quka-ai/daybook/app/core"
	"github.com/quka-ai/daybook/pkg/journal"
	"github.com/quka-ai/daybook/pkg/security"
)

const TOKEN_ENV_KEY = "DAYBOOK_TOKEN"

type Options struct {
	ConfigPath string
	Token      string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "init by given config")
	flagSet.StringVarP(&o.Token, "token", "t", os.Getenv(TOKEN_ENV_KEY), "signed access token, defaults to $"+TOKEN_ENV_KEY)
}

// session 是命令行下一个已登录用户的日记视图
type session struct {
	app   *core.Core
	store *journal.Store
}

func openSession(ctx context.Context, opts *Options) (*session, error) {
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))
	if opts.Token == "" {
		return nil, fmt.Errorf("no token given, use --token or $%s", TOKEN_ENV_KEY)
	}

	claims, err := security.VerifyToken(opts.Token, app.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	principal := claims.Principal()
	store := app.NewJournalStore()
	if err = store.SetPrincipal(ctx, &principal); err != nil {
		return nil, err
	}
	return &session{app: app, store: store}, nil
}
