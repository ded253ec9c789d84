package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/michael4d45/gameroom/games/counter"
	"github.com/michael4d45/gameroom/games/tictactoe"
	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
	"github.com/michael4d45/gameroom/internal/room"
	"github.com/michael4d45/gameroom/internal/substrate"
)

func newJoinCommand(flags *rootFlags) *cobra.Command {
	var game, name string
	cmd := &cobra.Command{
		Use:   "join <ticket>",
		Short: "Join an existing game room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd.Context(), flags, game, name, args[0])
		},
	}
	cmd.Flags().StringVar(&game, "game", "counter", "game being joined: counter or tictactoe")
	cmd.Flags().StringVar(&name, "name", "player", "your display name")
	return cmd
}

func runJoin(ctx context.Context, flags *rootFlags, game, name, ticketStr string) error {
	ticket, err := substrate.DecodeTicket(ticketStr)
	if err != nil {
		return fmt.Errorf("decode ticket: %w", err)
	}

	id, err := identity.Load(flags.storeRoot)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	author, err := identity.LoadAuthor(flags.storeRoot, id.EndpointID)
	if err != nil {
		return fmt.Errorf("load author: %w", err)
	}

	doc, err := substrate.NewCluster(id.EndpointID, substrate.ClusterConfig{
		RoomID:    ticket.RoomID,
		BindAddr:  flags.bindAddr,
		JoinAddrs: ticket.Addrs,
	})
	if err != nil {
		return fmt.Errorf("join substrate: %w", err)
	}

	profile := peer.Profile{Nickname: name}

	switch game {
	case "tictactoe":
		rm, err := room.Join(ctx, doc, id, author, tictactoe.New(), slog.Default())
		if err != nil {
			return fmt.Errorf("join room: %w", err)
		}
		if err := rm.AnnouncePresence(profile); err != nil {
			return fmt.Errorf("announce presence: %w", err)
		}
		return runSession(ctx, rm, parseTicTacToeAction, formatTicTacToeState)
	default:
		rm, err := room.Join(ctx, doc, id, author, counter.New(), slog.Default())
		if err != nil {
			return fmt.Errorf("join room: %w", err)
		}
		if err := rm.AnnouncePresence(profile); err != nil {
			return fmt.Errorf("announce presence: %w", err)
		}
		return runSession(ctx, rm, parseCounterAction, formatCounterState)
	}
}
