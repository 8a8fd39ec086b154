package cli

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/bughunt/internal/api/request"
	"github.com/mcoot/bughunt/internal/api/response"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score commands",
	}

	cmd.AddCommand(newScoreSubmitCmd())
	cmd.AddCommand(newScoreGetCmd())

	return cmd
}

func newScoreSubmitCmd() *cobra.Command {
	var username, mode, completedAt string

	cmd := &cobra.Command{
		Use:   "submit <points>",
		Short: "Record points from a completed game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var points int64
			if _, err := fmt.Sscan(args[0], &points); err != nil {
				return fmt.Errorf("invalid points %q", args[0])
			}

			name, err := cfg.username(username)
			if err != nil {
				return err
			}

			req := request.SubmitScoreRequest{Username: name, Score: &points, GameMode: mode}
			if completedAt != "" {
				t, err := time.Parse(time.RFC3339, completedAt)
				if err != nil {
					return fmt.Errorf("invalid --completed-at: %w", err)
				}
				req.CompletedAt = &t
			}

			var result response.SubmitScoreResponse
			if err := client.Post("/api/scores", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (default: the logged-in user)")
	cmd.Flags().StringVar(&mode, "mode", "", "Game mode played")
	cmd.Flags().StringVar(&completedAt, "completed-at", "", "Completion time, RFC 3339 (default: now)")

	return cmd
}

func newScoreGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [username]",
		Short: "Show a user's total score",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var override string
			if len(args) == 1 {
				override = args[0]
			}
			name, err := cfg.username(override)
			if err != nil {
				return err
			}

			var result response.ScoreResponse
			if err := client.Get("/api/scores/"+url.PathEscape(name), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newLeaderboardCmd() *cobra.Command {
	var watch, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top players",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return streamEvents("/api/leaderboard/events", "leaderboard", jsonOutput)
			}

			var result response.LeaderboardResponse
			if err := client.Get("/api/leaderboard", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream score events instead")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output streamed events as JSON lines")

	return cmd
}
