package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// rootFlags are persistent across every subcommand, grounded on the
// teacher's single flat flag set (cmd/client/main.go's -server/-v) but
// reshaped into cobra persistent flags the way DMRHub's cmd/root.go
// layers config onto every subcommand.
type rootFlags struct {
	storeRoot string
	bindAddr  string
	logLevel  string
}

// NewCommand builds the gameroom root command and its host/join
// subcommands.
func NewCommand(version, commit string) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:     "gameroom",
		Short:   "Host or join a peer-to-peer game room",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogger(flags.logLevel)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.storeRoot, "root", defaultStoreRoot(), "directory holding this node's persisted identity")
	cmd.PersistentFlags().StringVar(&flags.bindAddr, "bind", "0.0.0.0:7946", "address to bind the gossip substrate on")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	cmd.AddCommand(newHostCommand(flags))
	cmd.AddCommand(newJoinCommand(flags))
	return cmd
}

func defaultStoreRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gameroom"
	}
	return home + "/.gameroom"
}

// setupLogger mirrors DMRHub's cmd/root.go setupLogger: a single tint
// handler whose output is chosen once from the configured level —
// stdout for debug and info, stderr for warn and error. Records are not
// routed individually by their own level.
func setupLogger(level string) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	out := os.Stdout
	if slogLevel >= slog.LevelWarn {
		out = os.Stderr
	}
	logger := slog.New(tint.NewHandler(out, &tint.Options{Level: slogLevel}))
	slog.SetDefault(logger)
}
