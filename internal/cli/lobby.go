package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/bughunt/internal/api/request"
	"github.com/mcoot/bughunt/internal/api/response"
)

func newLobbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Lobby commands",
	}

	cmd.AddCommand(newLobbyListCmd())
	cmd.AddCommand(newLobbyJoinCmd())
	cmd.AddCommand(newLobbyLeaveCmd())
	cmd.AddCommand(newLobbyWatchCmd())

	return cmd
}

func newLobbyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rooms waiting for players",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.LobbiesResponse

			if err := client.Get("/api/lobby", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newLobbyJoinCmd() *cobra.Command {
	return newMembershipCmd("join", "Join a game room", "/api/lobby/join")
}

func newLobbyLeaveCmd() *cobra.Command {
	return newMembershipCmd("leave", "Leave a game room", "/api/lobby/leave")
}

func newMembershipCmd(use, short, path string) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   use + " <game-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := cfg.userID(user)
			if err != nil {
				return err
			}

			req := request.LobbyMembershipRequest{GameID: args[0], UserID: userID}
			var result response.OKResponse

			if err := client.Post(path, req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User id (default: the logged-in user)")

	return cmd
}

func newLobbyWatchCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream lobby events",
		Long: `Connect to the lobby's event stream and print events as they arrive.

Events include:
  - game_created: A new room opened
  - player_joined: A player took a seat
  - player_left: A player left a room
  - status_changed: A room started or finished

Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents("/api/lobby/events", "lobby", jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}
