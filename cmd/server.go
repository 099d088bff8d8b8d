package cmd

import (
	"github.com/spf13/cobra"

	"shorts-worker/config"
	server2 "shorts-worker/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start shorts worker",
		Run: func(cmd *cobra.Command, args []string) {
			server2.RunHttp(config)
		},
	}
}
