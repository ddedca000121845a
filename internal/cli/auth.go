package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("AIVENTURE_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or AIVENTURE_PASSWORD) are required")
			}

			cred, err := app.Auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			newOutput(cmd).Print(*cred)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Logout(cmd.Context()); err != nil {
				return err
			}
			newOutput(cmd).PrintMessage("Logged out")
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("AIVENTURE_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or AIVENTURE_PASSWORD) are required")
			}

			profile, err := app.Auth.Register(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			newOutput(cmd).Print(*profile)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <code>",
		Short: "Confirm your email with the emailed code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := app.Auth.Restore(cmd.Context()); !ok {
				return fmt.Errorf("not logged in")
			}

			cred, err := app.Auth.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			newOutput(cmd).Print(*cred)
			return nil
		},
	}
}

func newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Check the stored session with the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := app.Auth.Restore(cmd.Context()); !ok {
				return fmt.Errorf("not logged in")
			}

			cred, err := app.Auth.Revalidate(cmd.Context())
			if err != nil {
				return err
			}

			if cred.Profile != nil {
				newOutput(cmd).Print(*cred.Profile)
				return nil
			}
			newOutput(cmd).Print(*cred)
			return nil
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored token for a fresh one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := app.Auth.Restore(cmd.Context()); !ok {
				return fmt.Errorf("not logged in")
			}

			if _, err := app.Auth.Refresh(cmd.Context()); err != nil {
				return err
			}

			newOutput(cmd).PrintMessage("Token refreshed")
			return nil
		},
	}
}
