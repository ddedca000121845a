package cli

import (
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.API.Health(cmd.Context())
			if err != nil {
				return err
			}

			newOutput(cmd).Print(*result)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server-version",
		Short: "Show the server version",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.API.Version(cmd.Context())
			if err != nil {
				return err
			}

			newOutput(cmd).Print(*result)
			return nil
		},
	}
}
