// Package tictactoe is a Go port of the reference tic-tac-toe example
// (_examples/original_source/examples/tictactoe.rs): the first two
// peers to join become X and O, everyone else is an observer, and the
// host applies moves turn by turn until a win or a draw.
package tictactoe

import (
	"errors"

	"github.com/michael4d45/gameroom/internal/gamelogic"
	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
)

// Role is a player's assigned mark, or Observer for anyone beyond the
// first two.
type Role int

const (
	RoleX Role = iota
	RoleO
	RoleObserver
)

func (r Role) String() string {
	switch r {
	case RoleX:
		return "X"
	case RoleO:
		return "O"
	default:
		return "Observer"
	}
}

// Cell is a board square's contents.
type Cell int

const (
	CellEmpty Cell = iota
	CellX
	CellO
)

// Status is the game's current outcome.
type Status int

const (
	StatusOngoing Status = iota
	StatusWinX
	StatusWinO
	StatusDraw
)

// State is the full board, whose turn it is, and the role assignment.
type State struct {
	Board       [9]Cell                        `msgpack:"board"`
	Status      Status                         `msgpack:"status"`
	CurrentTurn Role                           `msgpack:"current_turn"`
	Roles       map[identity.EndpointID]Role   `msgpack:"roles"`
}

// Action is the only move this game supports: claim a cell by index.
type Action struct {
	Cell int `msgpack:"cell"` // 0-8
}

// Errors returned by ApplyAction, matching the Rust example's GameError.
var (
	ErrNotYourTurn      = errors.New("tictactoe: not your turn")
	ErrCellOccupied     = errors.New("tictactoe: cell is already occupied")
	ErrInvalidCell      = errors.New("tictactoe: invalid cell number")
	ErrGameOver         = errors.New("tictactoe: game is already over")
	ErrNotAPlayer       = errors.New("tictactoe: you are not a player in this game")
	ErrNotEnoughPlayers = errors.New("tictactoe: not enough players to start a game")
)

// winConditions enumerates every row, column and diagonal.
var winConditions = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Logic implements gamelogic.Logic[State, Action, Role, LeaveReason, error].
type Logic struct{}

var _ gamelogic.Logic[State, Action, Role, gamelogic.LeaveReason, error] = Logic{}

// New returns a ready-to-use tic-tac-toe logic instance.
func New() Logic { return Logic{} }

// DefaultLeaveReason reports a normal, deliberate disconnect.
func (Logic) DefaultLeaveReason() gamelogic.LeaveReason { return gamelogic.ApplicationClosed }

// AssignRoles makes the first two peers, in lexicographic endpoint-id
// order (see orderedIDs), X and O, everyone else an observer. The same
// peer set always yields the same assignment.
func (Logic) AssignRoles(peers peer.Map) map[identity.EndpointID]Role {
	ids := orderedIDs(peers)
	roles := make(map[identity.EndpointID]Role, len(ids))
	marks := []Role{RoleX, RoleO}
	for i, id := range ids {
		if i < len(marks) {
			roles[id] = marks[i]
		} else {
			roles[id] = RoleObserver
		}
	}
	return roles
}

func (Logic) InitialState(roles map[identity.EndpointID]Role) State {
	cloned := make(map[identity.EndpointID]Role, len(roles))
	for id, r := range roles {
		cloned[id] = r
	}
	return State{
		Status:      StatusOngoing,
		CurrentTurn: RoleX,
		Roles:       cloned,
	}
}

func (Logic) StartConditionsMet(peers peer.Map) error {
	if len(peers) < 2 {
		return ErrNotEnoughPlayers
	}
	return nil
}

func (Logic) ApplyAction(state *State, player identity.EndpointID, action Action) error {
	if state.Status != StatusOngoing {
		return ErrGameOver
	}
	role, ok := state.Roles[player]
	if !ok {
		return ErrNotAPlayer
	}
	if role != state.CurrentTurn {
		return ErrNotYourTurn
	}
	if action.Cell < 0 || action.Cell > 8 {
		return ErrInvalidCell
	}
	if state.Board[action.Cell] != CellEmpty {
		return ErrCellOccupied
	}

	state.Board[action.Cell] = cellFor(role)

	if checkWin(state.Board, cellFor(role)) {
		if role == RoleX {
			state.Status = StatusWinX
		} else {
			state.Status = StatusWinO
		}
		state.CurrentTurn = RoleObserver
		return nil
	}
	if boardFull(state.Board) {
		state.Status = StatusDraw
		state.CurrentTurn = RoleObserver
		return nil
	}

	if state.CurrentTurn == RoleX {
		state.CurrentTurn = RoleO
	} else {
		state.CurrentTurn = RoleX
	}
	return nil
}

func cellFor(role Role) Cell {
	if role == RoleX {
		return CellX
	}
	return CellO
}

func checkWin(board [9]Cell, mark Cell) bool {
	for _, c := range winConditions {
		if board[c[0]] == mark && board[c[1]] == mark && board[c[2]] == mark {
			return true
		}
	}
	return false
}

func boardFull(board [9]Cell) bool {
	for _, c := range board {
		if c == CellEmpty {
			return false
		}
	}
	return true
}

// orderedIDs returns peers' endpoint ids sorted lexicographically, so
// role assignment is deterministic given the same peer set regardless
// of Go's randomized map iteration order.
func orderedIDs(peers peer.Map) []identity.EndpointID {
	ids := make([]identity.EndpointID, 0, len(peers))
	for id := range peers {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}
