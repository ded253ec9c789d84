package main

import (
	"fmt"
	"strconv"

	"github.com/michael4d45/gameroom/games/counter"
	"github.com/michael4d45/gameroom/games/tictactoe"
)

func parseCounterAction(args []string) (counter.Action, error) {
	if len(args) != 1 {
		return counter.Action{}, fmt.Errorf("usage: action <delta>")
	}
	delta, err := strconv.Atoi(args[0])
	if err != nil {
		return counter.Action{}, fmt.Errorf("delta must be an integer: %w", err)
	}
	return counter.Action{Delta: delta}, nil
}

func formatCounterState(s counter.State) string {
	return fmt.Sprintf("value=%d", s.Value)
}

func parseTicTacToeAction(args []string) (tictactoe.Action, error) {
	if len(args) != 1 {
		return tictactoe.Action{}, fmt.Errorf("usage: action <cell 0-8>")
	}
	cell, err := strconv.Atoi(args[0])
	if err != nil {
		return tictactoe.Action{}, fmt.Errorf("cell must be an integer: %w", err)
	}
	return tictactoe.Action{Cell: cell}, nil
}

func formatTicTacToeState(s tictactoe.State) string {
	out := ""
	for i, c := range s.Board {
		switch c {
		case tictactoe.CellX:
			out += "X"
		case tictactoe.CellO:
			out += "O"
		default:
			out += "."
		}
		if i%3 == 2 {
			out += " "
		}
	}
	return fmt.Sprintf("%sturn=%s status=%d", out, s.CurrentTurn, s.Status)
}
