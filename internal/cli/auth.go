package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/bughunt/internal/api/request"
	"github.com/mcoot/bughunt/internal/api/response"
)

func newRegisterCmd() *cobra.Command {
	var user, email, pass string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" || pass == "" {
				return fmt.Errorf("--user and --pass are required")
			}

			req := request.RegisterRequest{Username: user, Email: email, Password: pass}
			var result response.AuthResponse

			if err := client.Post("/api/auth/register", req, &result); err != nil {
				return err
			}

			if err := cfg.SaveProfile(result.User); err != nil {
				return fmt.Errorf("failed to save profile: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newLoginCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the account for later commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" || pass == "" {
				return fmt.Errorf("--user and --pass are required")
			}

			req := request.LoginRequest{Username: user, Password: pass}
			var result response.AuthResponse

			if err := client.Post("/api/auth/login", req, &result); err != nil {
				return err
			}

			if err := cfg.SaveProfile(result.User); err != nil {
				return fmt.Errorf("failed to save profile: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the saved account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Profile == nil {
				return errors.New("not logged in")
			}
			out := NewOutput(cfg.Output)
			out.Print(*cfg.Profile)
			return nil
		},
	}
}
