package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/michael4d45/gameroom/internal/room"
	"github.com/michael4d45/gameroom/internal/roomstate"
)

const closeGraceTimeout = 3 * time.Second

// runSession drives a terminal REPL against a live room: it prints
// every UI event as it arrives and reads "chat", "action", "start" and
// "quit" commands from stdin. The read-loop-plus-printer shape mirrors
// the teacher's client main loop (cmd/client/main.go), generalized to
// work over any S/A/R via Go generics instead of the teacher's
// hardcoded command set.
func runSession[S any, A any, R any, L any, E error](
	ctx context.Context,
	rm *room.Room[S, A, R, L, E],
	parseAction func(args []string) (A, error),
	formatState func(S) string,
) error {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeGraceTimeout)
		defer cancel()
		if err := rm.Close(closeCtx); err != nil {
			slog.Warn("close room failed", "error", err)
		}
	}()

	go printEvents(rm, formatState)

	fmt.Println("commands: start | action <args...> | chat <text> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "start":
			if err := rm.StartGame(); err != nil {
				fmt.Println("start failed:", err)
			}
		case "chat":
			if err := rm.SendChat(strings.TrimPrefix(line, "chat ")); err != nil {
				fmt.Println("chat failed:", err)
			}
		case "action":
			action, err := parseAction(fields[1:])
			if err != nil {
				fmt.Println("bad action:", err)
				continue
			}
			if err := rm.SubmitAction(action); err != nil {
				fmt.Println("submit action failed:", err)
			}
		default:
			fmt.Println("unrecognised command:", fields[0])
		}
	}
	return ctx.Err()
}

func printEvents[S any, A any, R any, L any, E error](rm *room.Room[S, A, R, L, E], formatState func(S) string) {
	for ev := range rm.Events() {
		switch ev.Kind {
		case room.UILobbyUpdated:
			fmt.Printf("[lobby] %d peer(s)\n", len(ev.Lobby))
		case room.UIStateUpdated:
			fmt.Println("[state]", formatState(ev.State))
		case room.UIAppStateChanged:
			fmt.Println("[phase]", appStateLabel(ev.AppState))
		case room.UIChatReceived:
			fmt.Printf("[chat] %s: %s\n", ev.Chat.SenderName, ev.Chat.Text)
		case room.UIHostDisconnected:
			fmt.Println("[warn] host appears disconnected, game paused")
		case room.UIHostConnected:
			fmt.Println("[info] host reconnected")
		case room.UIHostChanged:
			fmt.Printf("[info] new host: %s\n", ev.HostName)
		case room.UIError:
			fmt.Println("[error]", ev.ErrMsg)
		}
	}
}

func appStateLabel(s roomstate.AppState) string {
	return s.String()
}
