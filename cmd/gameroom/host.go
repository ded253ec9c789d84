package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/michael4d45/gameroom/games/counter"
	"github.com/michael4d45/gameroom/games/tictactoe"
	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
	"github.com/michael4d45/gameroom/internal/room"
	"github.com/michael4d45/gameroom/internal/substrate"
)

func newHostCommand(flags *rootFlags) *cobra.Command {
	var game, name string
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a new game room",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHost(cmd.Context(), flags, game, name)
		},
	}
	cmd.Flags().StringVar(&game, "game", "counter", "game to host: counter or tictactoe")
	cmd.Flags().StringVar(&name, "name", "host", "your display name")
	return cmd
}

func runHost(ctx context.Context, flags *rootFlags, game, name string) error {
	id, err := identity.Load(flags.storeRoot)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	author, err := identity.LoadAuthor(flags.storeRoot, id.EndpointID)
	if err != nil {
		return fmt.Errorf("load author: %w", err)
	}

	doc, err := substrate.NewCluster(id.EndpointID, substrate.ClusterConfig{
		RoomID:   uuid.NewString(),
		BindAddr: flags.bindAddr,
	})
	if err != nil {
		return fmt.Errorf("start substrate: %w", err)
	}

	profile := peer.Profile{Nickname: name}

	switch game {
	case "tictactoe":
		rm, err := room.Create(ctx, doc, id, author, profile, tictactoe.New(), slog.Default())
		if err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		printTicket(rm)
		return runSession(ctx, rm, parseTicTacToeAction, formatTicTacToeState)
	default:
		rm, err := room.Create(ctx, doc, id, author, profile, counter.New(), slog.Default())
		if err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		printTicket(rm)
		return runSession(ctx, rm, parseCounterAction, formatCounterState)
	}
}

func printTicket[S any, A any, R any, L any, E error](rm *room.Room[S, A, R, L, E]) {
	ticket, err := rm.Ticket()
	if err != nil {
		fmt.Println("failed to produce ticket:", err)
		return
	}
	fmt.Println("room ticket:", ticket)
}
