package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/bughunt/internal/api/request"
	"github.com/mcoot/bughunt/internal/api/response"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game room commands",
	}

	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameWatchCmd())

	return cmd
}

func newGameCreateCmd() *cobra.Command {
	var mode string
	var maxPlayers int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new game room",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.CreateGameRequest{Mode: mode, MaxPlayers: maxPlayers}
			var result response.GameResponse

			if err := client.Post("/api/games", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result.Game)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Game mode (required)")
	cmd.Flags().IntVar(&maxPlayers, "max-players", 0, "Room capacity, 2-10 (default: server default)")
	_ = cmd.MarkFlagRequired("mode")

	return cmd
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get game details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GameDetailResponse

			if err := client.Get(fmt.Sprintf("/api/games/%s", url.PathEscape(args[0])), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result.Game)
			return nil
		},
	}
}

func newGameWatchCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Stream a game room's events",
		Long: `Connect to the game's event stream and print events as they arrive.

Events include:
  - player_joined: A player took a seat
  - player_left: A player left the room
  - status_changed: The game started or finished

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents(fmt.Sprintf("/api/games/%s/events", url.PathEscape(args[0])), "game "+args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}
