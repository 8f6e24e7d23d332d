package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quka-ai/daybook/cmd/cli"
	"github.com/quka-ai/daybook/cmd/service"
)

func main() {
	root := &cobra.Command{
		Use:   "daybook",
		Short: "daybook journal",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("empty command")
		},
	}

	root.AddCommand(service.NewCommand(), service.NewMigrateCommand(), cli.NewJournalCommand(), cli.NewTokenCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
