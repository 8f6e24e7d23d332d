package service

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/quka-ai/daybook/app/core"
)

type Options struct {
	ConfigPath string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	// Add flags for generic options
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "init api by given config")
}

func NewCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "service",
		Short: "journal http service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func Run(opts *Options) error {
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))
	return serve(app)
}

func NewMigrateCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "create journal tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			// MustSetupCore 会执行建表
			core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))
			cmd.Println("migrate done")
			return nil
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}
